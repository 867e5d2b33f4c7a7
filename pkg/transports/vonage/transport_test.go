package vonage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harunnryd/vidya/pkg/transports"
)

type handlerStub struct {
	mu        sync.Mutex
	answers   []transports.AnswerRequest
	answerErr error
	events    map[string]int
	greetings map[string][]byte
	streams   map[string]*streamStub
	known     map[string]bool
	sends     map[string]func([]byte) error
}

func newHandlerStub() *handlerStub {
	return &handlerStub{
		events:    make(map[string]int),
		greetings: make(map[string][]byte),
		streams:   make(map[string]*streamStub),
		known:     make(map[string]bool),
		sends:     make(map[string]func([]byte) error),
	}
}

type streamStub struct {
	mu     sync.Mutex
	chunks [][]byte
	closed bool
}

func (s *streamStub) PushAudio(chunk []byte) {
	s.mu.Lock()
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.chunks = append(s.chunks, cp)
	s.mu.Unlock()
}

func (s *streamStub) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (h *handlerStub) HandleAnswer(_ context.Context, req transports.AnswerRequest) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.answerErr != nil {
		return h.answerErr
	}
	h.answers = append(h.answers, req)
	h.known[req.CallID] = true
	return nil
}

func (h *handlerStub) TakeGreeting(callID string) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.greetings[callID]
	delete(h.greetings, callID)
	return g, ok
}

func (h *handlerStub) OpenStream(callID string, send func([]byte) error) (transports.StreamSession, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.known[callID] {
		return nil, false
	}
	s := &streamStub{}
	h.streams[callID] = s
	h.sends[callID] = send
	return s, true
}

func (h *handlerStub) HandleEvent(_ context.Context, callID, status string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events[callID+":"+status]++
	return nil
}

func TestAnswerWebhookReturnsWebsocketNCCO(t *testing.T) {
	h := newHandlerStub()
	tr := New(Config{PublicURL: "https://calls.example.com"}, h, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/webhooks/answer?uuid=CALL-1&user_id=owner-1&borrower_id=b1&borrower_name=Asha&preferred_language=hi&to=%2B919800000011", nil)
	w := httptest.NewRecorder()
	tr.handleAnswer(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var ncco []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &ncco); err != nil {
		t.Fatalf("decode ncco: %v", err)
	}
	if len(ncco) != 1 || ncco[0]["action"] != "connect" {
		t.Fatalf("ncco = %+v", ncco)
	}
	eps := ncco[0]["endpoint"].([]any)
	ep := eps[0].(map[string]any)
	if ep["type"] != "websocket" {
		t.Errorf("endpoint type = %v", ep["type"])
	}
	if ep["content-type"] != "audio/l16;rate=16000" {
		t.Errorf("content-type = %v", ep["content-type"])
	}
	uri, _ := ep["uri"].(string)
	if !strings.HasPrefix(uri, "wss://calls.example.com/ws/audio") || !strings.Contains(uri, "call_uuid=CALL-1") {
		t.Errorf("uri = %q", uri)
	}

	if len(h.answers) != 1 {
		t.Fatalf("answers = %d", len(h.answers))
	}
	got := h.answers[0]
	if got.CallID != "CALL-1" || got.OwnerID != "owner-1" || got.PreferredLanguage != "hi-IN" {
		t.Errorf("answer request = %+v", got)
	}
}

func TestAnswerWebhookWithoutCallIDRejected(t *testing.T) {
	tr := New(Config{}, newHandlerStub(), nil)
	w := httptest.NewRecorder()
	tr.handleAnswer(w, httptest.NewRequest(http.MethodGet, "/webhooks/answer", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestEventWebhookForwardsCompletedOnly(t *testing.T) {
	h := newHandlerStub()
	tr := New(Config{}, h, nil)

	post := func(body string) int {
		w := httptest.NewRecorder()
		tr.handleEvent(w, httptest.NewRequest(http.MethodPost, "/webhooks/event", strings.NewReader(body)))
		return w.Code
	}

	// Everything short of "completed" is acknowledged but not finalized.
	for _, status := range []string{"ringing", "started", "busy", "unanswered", "failed", "timeout", "rejected", "cancelled"} {
		if code := post(`{"uuid":"CALL-1","status":"` + status + `"}`); code != http.StatusOK {
			t.Fatalf("%s status = %d", status, code)
		}
	}
	if code := post(`{"uuid":"CALL-1","status":"completed"}`); code != http.StatusOK {
		t.Fatalf("completed status = %d", code)
	}
	if code := post(`not json`); code != http.StatusOK {
		t.Fatalf("malformed body status = %d", code)
	}

	if len(h.events) != 1 || h.events["CALL-1:completed"] != 1 {
		t.Errorf("events = %v, want only CALL-1:completed once", h.events)
	}
}

func TestEventWebhookAcceptsQueryParams(t *testing.T) {
	h := newHandlerStub()
	tr := New(Config{}, h, nil)

	w := httptest.NewRecorder()
	tr.handleEvent(w, httptest.NewRequest(http.MethodGet,
		"/webhooks/event?uuid=CALL-3&status=completed", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if h.events["CALL-3:completed"] != 1 {
		t.Errorf("events = %v, want CALL-3:completed", h.events)
	}
}

func TestEventWebhookFallsBackToConversationUUID(t *testing.T) {
	h := newHandlerStub()
	tr := New(Config{}, h, nil)

	w := httptest.NewRecorder()
	tr.handleEvent(w, httptest.NewRequest(http.MethodPost, "/webhooks/event",
		strings.NewReader(`{"conversation_uuid":"CONV-9","status":"completed"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if h.events["CONV-9:completed"] != 1 {
		t.Errorf("events = %v, want CONV-9:completed", h.events)
	}
}

func TestWebsocketDeliversGreetingAndAudio(t *testing.T) {
	h := newHandlerStub()
	h.known["CALL-1"] = true
	h.greetings["CALL-1"] = make([]byte, 1600)
	tr := New(Config{ChunkBytes: 640}, h, nil)

	srv := httptest.NewServer(tr.Mux())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/audio?call_uuid=CALL-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The greeting arrives first, chunked to the configured frame size.
	var received int
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for received < 1600 {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read greeting: %v", err)
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		if len(msg) > 640 {
			t.Fatalf("chunk size = %d, want <= 640", len(msg))
		}
		received += len(msg)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 320)); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		h.mu.Lock()
		stream := h.streams["CALL-1"]
		var n int
		if stream != nil {
			stream.mu.Lock()
			n = len(stream.chunks)
			stream.mu.Unlock()
		}
		h.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("inbound audio never reached the stream")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebsocketMetadataFromFirstTextFrame(t *testing.T) {
	h := newHandlerStub()
	h.known["CALL-2"] = true
	tr := New(Config{}, h, nil)

	srv := httptest.NewServer(tr.Mux())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/audio"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	meta := `{"event":"websocket:connected","call_uuid":"CALL-2"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(meta)); err != nil {
		t.Fatalf("write metadata: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		h.mu.Lock()
		_, ok := h.streams["CALL-2"]
		h.mu.Unlock()
		if ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("stream never attached from metadata frame")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebsocketUnknownCallClosed(t *testing.T) {
	tr := New(Config{}, newHandlerStub(), nil)
	srv := httptest.NewServer(tr.Mux())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/audio?call_uuid=NOPE"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the server to close an unknown call's socket")
	}
}
