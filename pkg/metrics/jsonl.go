package metrics

import (
	"encoding/json"
	"io"
	"sync"
)

// JSONLObserver writes one JSON object per event, one event per line.
type JSONLObserver struct {
	mu  sync.Mutex
	enc *json.Encoder
}

type jsonlRecord struct {
	Name   string            `json:"name"`
	Time   string            `json:"time"`
	Value  float64           `json:"value,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
	Fields map[string]any    `json:"fields,omitempty"`
}

func NewJSONLObserver(w io.Writer) *JSONLObserver {
	if w == nil {
		w = io.Discard
	}
	return &JSONLObserver{enc: json.NewEncoder(w)}
}

func (o *JSONLObserver) RecordEvent(ev MetricsEvent) {
	rec := jsonlRecord{
		Name:   ev.Name,
		Time:   ev.Time.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Value:  ev.Value,
		Tags:   ev.Tags,
		Fields: ev.Fields,
	}
	o.mu.Lock()
	_ = o.enc.Encode(rec)
	o.mu.Unlock()
}
