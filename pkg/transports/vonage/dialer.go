package vonage

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/harunnryd/vidya/pkg/errorsx"
	"github.com/harunnryd/vidya/pkg/resilience"
	"github.com/harunnryd/vidya/pkg/transports"
)

const defaultAPIBase = "https://api.nexmo.com"

// Dialer places outbound calls through the Vonage Voice API, authenticated
// with a short-lived application JWT.
type Dialer struct {
	cfg        Config
	apiBase    string
	httpClient *http.Client
	key        *rsa.PrivateKey
	now        func() time.Time
}

func NewDialer(cfg Config) (*Dialer, error) {
	cfg = cfg.withDefaults()
	if cfg.ApplicationID == "" {
		return nil, errorsx.New(errorsx.ReasonConfigInvalid, "vonage application_id is required")
	}
	pem := []byte(cfg.PrivateKeyPEM)
	if len(pem) == 0 && cfg.PrivateKeyPath != "" {
		b, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, errorsx.Wrap(err, errorsx.ReasonConfigInvalid)
		}
		pem = b
	}
	if len(pem) == 0 {
		return nil, errorsx.New(errorsx.ReasonConfigInvalid, "vonage private key is required")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pem)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonConfigInvalid)
	}
	return &Dialer{
		cfg:        cfg,
		apiBase:    defaultAPIBase,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		key:        key,
		now:        time.Now,
	}, nil
}

type dialBody struct {
	To        []endpoint `json:"to"`
	From      endpoint   `json:"from"`
	AnswerURL []string   `json:"answer_url"`
	EventURL  []string   `json:"event_url"`
}

type endpoint struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type dialResponse struct {
	UUID   string `json:"uuid"`
	Status string `json:"status"`
}

// Dial starts one outbound call. The answer URL carries the borrower
// context as query parameters so the answer webhook can register the call
// without a shared lookup.
func (d *Dialer) Dial(ctx context.Context, req transports.DialRequest) (string, error) {
	if req.To == "" {
		return "", errorsx.New(errorsx.ReasonCallPlacement, "destination number is required")
	}
	from := req.From
	if from == "" {
		from = d.cfg.FromNumber
	}

	body := dialBody{
		To:        []endpoint{{Type: "phone", Number: req.To}},
		From:      endpoint{Type: "phone", Number: from},
		AnswerURL: []string{d.answerURL(req)},
		EventURL:  []string{d.publicURL(d.cfg.EventPath)},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonCallPlacement)
	}

	token, err := d.token()
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.apiBase+"/v1/calls", bytes.NewReader(payload))
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonCallPlacement)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonCallPlacement)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", resilience.RateLimitError{Provider: "vonage"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errorsx.New(errorsx.ReasonCallPlacement, "vonage create call returned status %d", resp.StatusCode)
	}

	var out dialResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonCallPlacement)
	}
	if out.UUID == "" {
		return "", errorsx.New(errorsx.ReasonCallPlacement, "vonage response missing call uuid")
	}
	return out.UUID, nil
}

func (d *Dialer) token() (string, error) {
	now := d.now()
	claims := jwt.MapClaims{
		"application_id": d.cfg.ApplicationID,
		"iat":            now.Unix(),
		"exp":            now.Add(5 * time.Minute).Unix(),
		"jti":            uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(d.key)
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonTransportAuth)
	}
	return signed, nil
}

func (d *Dialer) answerURL(req transports.DialRequest) string {
	q := url.Values{}
	q.Set("user_id", req.OwnerID)
	q.Set("borrower_id", req.BorrowerID)
	q.Set("borrower_name", req.BorrowerName)
	q.Set("preferred_language", req.PreferredLanguage)
	q.Set("to", req.To)
	return fmt.Sprintf("%s?%s", d.publicURL(d.cfg.AnswerPath), q.Encode())
}

func (d *Dialer) publicURL(path string) string {
	if d.cfg.PublicURL != "" {
		return "https://" + trimScheme(d.cfg.PublicURL) + path
	}
	addr := d.cfg.ServerAddr
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr + path
}

var _ transports.OutboundDialer = (*Dialer)(nil)
