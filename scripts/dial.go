package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

type dispatchRequest struct {
	OwnerID    string `json:"owner_id"`
	BorrowerID string `json:"borrower_id"`
}

type bulkDispatchRequest struct {
	OwnerID     string   `json:"owner_id"`
	BorrowerIDs []string `json:"borrower_ids,omitempty"`
}

func main() {
	addr := flag.String("addr", "http://localhost:8081", "")
	owner := flag.String("owner", "", "")
	borrowers := flag.String("borrowers", "", "comma separated, empty means all")
	flag.Parse()
	if *owner == "" {
		fmt.Println("usage: dial -owner=acme [-borrowers=b1,b2] [-addr=http://host:8081]")
		os.Exit(1)
	}

	ids := splitIDs(*borrowers)
	var (
		path string
		body any
	)
	if len(ids) == 1 {
		path = "/calls"
		body = dispatchRequest{OwnerID: *owner, BorrowerID: ids[0]}
	} else {
		path = "/calls/bulk"
		body = bulkDispatchRequest{OwnerID: *owner, BorrowerIDs: ids}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		fmt.Println("encode error:", err)
		os.Exit(1)
	}
	resp, err := http.Post(strings.TrimRight(*addr, "/")+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		fmt.Println("request error:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		fmt.Printf("server error (%d): %s\n", resp.StatusCode, strings.TrimSpace(string(out)))
		os.Exit(1)
	}
	fmt.Println(strings.TrimSpace(string(out)))
}

func splitIDs(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
