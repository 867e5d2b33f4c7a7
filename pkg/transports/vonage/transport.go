// Package vonage implements the telephony transport against the Vonage
// Voice API: NCCO answer webhooks, status event webhooks, an l16 media
// websocket, and the outbound dialer.
package vonage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harunnryd/vidya/pkg/lang"
	"github.com/harunnryd/vidya/pkg/redact"
	"github.com/harunnryd/vidya/pkg/transports"
)

type Config struct {
	ServerAddr     string   `mapstructure:"server_addr"`
	PublicURL      string   `mapstructure:"public_url"`
	AnswerPath     string   `mapstructure:"answer_path"`
	EventPath      string   `mapstructure:"event_path"`
	WebsocketPath  string   `mapstructure:"ws_path"`
	FromNumber     string   `mapstructure:"from_number"`
	ChunkBytes     int      `mapstructure:"chunk_bytes"`
	AllowAnyOrigin bool     `mapstructure:"allow_any_origin"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	ApplicationID  string `mapstructure:"application_id"`
	PrivateKeyPEM  string `mapstructure:"private_key"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
}

func (c Config) withDefaults() Config {
	if c.ServerAddr == "" {
		c.ServerAddr = ":8080"
	}
	if c.AnswerPath == "" {
		c.AnswerPath = "/webhooks/answer"
	}
	if c.EventPath == "" {
		c.EventPath = "/webhooks/event"
	}
	if c.WebsocketPath == "" {
		c.WebsocketPath = "/ws/audio"
	}
	if c.ChunkBytes <= 0 {
		c.ChunkBytes = 640
	}
	if !c.AllowAnyOrigin && len(c.AllowedOrigins) == 0 {
		c.AllowAnyOrigin = true
	}
	return c
}

type Transport struct {
	cfg      Config
	handler  transports.CallHandler
	server   *http.Server
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*wsSession

	draining atomic.Bool
}

func New(cfg Config, handler transports.CallHandler, logger *slog.Logger) *Transport {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	t := &Transport{
		cfg:     cfg,
		handler: handler,
		logger:  logger.With(slog.String("component", "vonage_transport")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		sessions: make(map[string]*wsSession),
	}
	t.upgrader.CheckOrigin = t.checkOrigin
	return t
}

func (t *Transport) Name() string { return "vonage" }

func (t *Transport) ReadyFields() map[string]any {
	return map[string]any{
		"answer_url": t.publicURL(t.cfg.AnswerPath),
		"event_url":  t.publicURL(t.cfg.EventPath),
	}
}

func (t *Transport) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc(t.cfg.AnswerPath, t.handleAnswer)
	mux.HandleFunc(t.cfg.EventPath, t.handleEvent)
	mux.Handle(t.cfg.WebsocketPath, t)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	t.server = &http.Server{
		Addr:              t.cfg.ServerAddr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           mux,
	}
	go func() {
		<-ctx.Done()
		_ = t.server.Close()
	}()
	go func() {
		if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("transport_server_error", slog.Any("error", err))
		}
	}()
	return nil
}

func (t *Transport) Stop() error {
	t.draining.Store(true)
	if t.server != nil {
		_ = t.server.Close()
	}
	t.mu.Lock()
	for _, sess := range t.sessions {
		_ = sess.close()
	}
	t.sessions = make(map[string]*wsSession)
	t.mu.Unlock()
	return nil
}

// Mux exposes the transport's handler for tests and embedded servers.
func (t *Transport) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(t.cfg.AnswerPath, t.handleAnswer)
	mux.HandleFunc(t.cfg.EventPath, t.handleEvent)
	mux.Handle(t.cfg.WebsocketPath, t)
	return mux
}

// handleAnswer is hit by Vonage when the callee picks up. It registers the
// call with the engine and returns an NCCO that connects the call audio to
// our websocket in raw 16 kHz l16.
func (t *Transport) handleAnswer(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := transports.AnswerRequest{
		CallID:            firstNonEmpty(q.Get("uuid"), q.Get("call_uuid")),
		OwnerID:           q.Get("user_id"),
		BorrowerID:        q.Get("borrower_id"),
		BorrowerName:      q.Get("borrower_name"),
		PreferredLanguage: lang.Normalize(q.Get("preferred_language")),
		From:              q.Get("from"),
		To:                q.Get("to"),
	}
	if req.CallID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := t.handler.HandleAnswer(r.Context(), req); err != nil {
		t.logger.Error("answer_rejected",
			slog.String("call_id", req.CallID),
			slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	t.logger.Info("call_answered",
		slog.String("call_id", req.CallID),
		slog.String("to", redact.Phone(req.To)))

	ncco := []map[string]any{
		{
			"action": "connect",
			"from":   t.cfg.FromNumber,
			"endpoint": []map[string]any{
				{
					"type":         "websocket",
					"uri":          t.websocketURL(r) + "?call_uuid=" + req.CallID,
					"content-type": "audio/l16;rate=16000",
					"headers": map[string]string{
						"call_uuid": req.CallID,
					},
				},
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ncco)
}

type statusEvent struct {
	UUID             string `json:"uuid"`
	ConversationUUID string `json:"conversation_uuid"`
	Status           string `json:"status"`
}

// handleEvent receives Vonage status callbacks, as JSON bodies or GET
// query parameters. Only "completed" finalizes a call; every other status
// (ringing, busy, unanswered, failed, ...) is acknowledged and ignored so
// a call that never connects is retried by the dispatcher instead of
// producing an outcome from an empty transcript.
func (t *Transport) handleEvent(w http.ResponseWriter, r *http.Request) {
	evt := decodeStatusEvent(r)
	status := strings.ToLower(strings.TrimSpace(evt.Status))
	callID := firstNonEmpty(evt.UUID, evt.ConversationUUID)
	if callID == "" || status != "completed" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if err := t.handler.HandleEvent(r.Context(), callID, status); err != nil {
		t.logger.Warn("event_handling_failed",
			slog.String("call_id", callID),
			slog.String("status", status),
			slog.Any("error", err))
	}
	w.WriteHeader(http.StatusOK)
}

func decodeStatusEvent(r *http.Request) statusEvent {
	var evt statusEvent
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		evt.UUID = q.Get("uuid")
		evt.ConversationUUID = q.Get("conversation_uuid")
		evt.Status = q.Get("status")
		return evt
	}
	_ = json.NewDecoder(r.Body).Decode(&evt)
	return evt
}

// ServeHTTP upgrades the media websocket. The call UUID comes from the
// connect headers Vonage echoes in its first text frame, with the query
// parameter as fallback.
func (t *Transport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if t.draining.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	callID := r.URL.Query().Get("call_uuid")

	sess := &wsSession{conn: conn, sendCh: make(chan []byte, 256)}
	go sess.loop()
	defer sess.close()

	var stream transports.StreamSession
	attach := func(id string) bool {
		s, ok := t.handler.OpenStream(id, t.sender(sess))
		if !ok {
			t.logger.Warn("stream_for_unknown_call", slog.String("call_id", id))
			return false
		}
		stream = s
		t.track(id, sess)
		if greeting, ok := t.handler.TakeGreeting(id); ok {
			t.enqueueChunks(sess, greeting)
		}
		return true
	}
	defer func() {
		if stream != nil {
			t.untrack(callID)
		}
	}()

	if callID != "" && !attach(callID) {
		return
	}

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		switch msgType {
		case websocket.TextMessage:
			if stream != nil {
				continue
			}
			var meta map[string]any
			if err := json.Unmarshal(msg, &meta); err != nil {
				continue
			}
			if id, _ := meta["call_uuid"].(string); id != "" {
				callID = id
				if !attach(callID) {
					return
				}
			}
		case websocket.BinaryMessage:
			if stream != nil {
				stream.PushAudio(msg)
			}
		}
	}
	if stream != nil {
		stream.Close()
	}
}

// sender chunks outbound PCM into fixed-size binary frames the provider
// expects on an l16 websocket.
func (t *Transport) sender(sess *wsSession) func([]byte) error {
	return func(audio []byte) error {
		t.enqueueChunks(sess, audio)
		return nil
	}
}

func (t *Transport) enqueueChunks(sess *wsSession, audio []byte) {
	size := t.cfg.ChunkBytes
	for off := 0; off < len(audio); off += size {
		end := off + size
		if end > len(audio) {
			end = len(audio)
		}
		sess.enqueue(audio[off:end])
	}
}

func (t *Transport) track(callID string, sess *wsSession) {
	t.mu.Lock()
	if old := t.sessions[callID]; old != nil && old != sess {
		_ = old.close()
	}
	t.sessions[callID] = sess
	t.mu.Unlock()
}

func (t *Transport) untrack(callID string) {
	t.mu.Lock()
	delete(t.sessions, callID)
	t.mu.Unlock()
}

func (t *Transport) websocketURL(r *http.Request) string {
	if t.cfg.PublicURL != "" {
		return "wss://" + trimScheme(t.cfg.PublicURL) + t.cfg.WebsocketPath
	}
	host := r.Host
	if host == "" {
		host = strings.TrimPrefix(t.cfg.ServerAddr, ":")
	}
	return "wss://" + host + t.cfg.WebsocketPath
}

func (t *Transport) publicURL(path string) string {
	if t.cfg.PublicURL != "" {
		return "https://" + trimScheme(t.cfg.PublicURL) + path
	}
	addr := t.cfg.ServerAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + path
}

func (t *Transport) checkOrigin(r *http.Request) bool {
	if t.cfg.AllowAnyOrigin {
		return true
	}
	origin := strings.TrimRight(strings.TrimSpace(r.Header.Get("Origin")), "/")
	if origin == "" {
		return true
	}
	originHost := trimScheme(origin)
	for _, allowed := range t.cfg.AllowedOrigins {
		a := strings.TrimRight(strings.TrimSpace(allowed), "/")
		if a == "" {
			continue
		}
		if strings.EqualFold(a, origin) || strings.EqualFold(trimScheme(a), originHost) {
			return true
		}
	}
	return false
}

func trimScheme(v string) string {
	v = strings.TrimPrefix(v, "https://")
	v = strings.TrimPrefix(v, "http://")
	return strings.TrimRight(v, "/")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

type wsSession struct {
	conn   *websocket.Conn
	sendCh chan []byte
	closed atomic.Bool
}

func (s *wsSession) enqueue(msg []byte) {
	if s.closed.Load() {
		return
	}
	select {
	case s.sendCh <- msg:
	default:
	}
}

func (s *wsSession) loop() {
	for msg := range s.sendCh {
		_ = s.conn.WriteMessage(websocket.BinaryMessage, msg)
	}
}

func (s *wsSession) close() error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.sendCh)
	}
	return s.conn.Close()
}

var (
	_ transports.Transport     = (*Transport)(nil)
	_ transports.ReadyReporter = (*Transport)(nil)
)
