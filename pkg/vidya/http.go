package vidya

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/harunnryd/vidya/pkg/dispatch"
	"github.com/harunnryd/vidya/pkg/store"
)

// APIServer is the operator-facing HTTP surface: start single or bulk
// dispatch runs and inspect the active call set. Call audio never touches
// this server; the transport owns the media endpoints.
type APIServer struct {
	addr       string
	engine     *Engine
	dispatcher *dispatch.Dispatcher
	st         store.Store
	logger     *slog.Logger
	server     *http.Server
}

func NewAPIServer(addr string, engine *Engine, dispatcher *dispatch.Dispatcher, st store.Store, logger *slog.Logger) *APIServer {
	if addr == "" {
		addr = ":8081"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &APIServer{
		addr:       addr,
		engine:     engine,
		dispatcher: dispatcher,
		st:         st,
		logger:     logger.With(slog.String("component", "api")),
	}
}

func (s *APIServer) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/calls", s.handleDispatch)
	mux.HandleFunc("/calls/bulk", s.handleBulkDispatch)
	mux.HandleFunc("/calls/active", s.handleActiveCalls)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *APIServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           s.Mux(),
	}
	go func() {
		<-ctx.Done()
		_ = s.server.Close()
	}()
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api_server_error", slog.Any("error", err))
		}
	}()
	return nil
}

func (s *APIServer) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

type dispatchRequest struct {
	OwnerID    string `json:"owner_id"`
	BorrowerID string `json:"borrower_id"`
}

// handleDispatch starts one borrower's placement loop and returns
// immediately; the call itself runs for minutes.
func (s *APIServer) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OwnerID == "" || req.BorrowerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "owner_id and borrower_id are required"})
		return
	}
	borrower, err := s.st.GetBorrower(r.Context(), req.OwnerID, req.BorrowerID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "borrower not found"})
		return
	}
	go func() {
		res := s.dispatcher.Place(context.Background(), req.OwnerID, borrower)
		s.logger.Info("dispatch_finished",
			slog.String("borrower_id", res.BorrowerID),
			slog.Bool("completed", res.Completed),
			slog.Bool("escalated", res.ForcedEscalation))
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "dispatching", "borrower_id": borrower.ID})
}

type bulkDispatchRequest struct {
	OwnerID     string   `json:"owner_id"`
	BorrowerIDs []string `json:"borrower_ids"` // empty means every borrower
}

func (s *APIServer) handleBulkDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req bulkDispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OwnerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "owner_id is required"})
		return
	}

	all, err := s.st.ListBorrowers(r.Context(), req.OwnerID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "borrower listing failed"})
		return
	}
	targets := all
	if len(req.BorrowerIDs) > 0 {
		wanted := make(map[string]bool, len(req.BorrowerIDs))
		for _, id := range req.BorrowerIDs {
			wanted[id] = true
		}
		targets = targets[:0:0]
		for _, b := range all {
			if wanted[b.ID] {
				targets = append(targets, b)
			}
		}
	}
	if len(targets) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no matching borrowers"})
		return
	}

	go func() {
		sum := s.dispatcher.PlaceBulk(context.Background(), req.OwnerID, targets)
		s.logger.Info("bulk_dispatch_finished",
			slog.Int("total", sum.Total),
			slog.Int("completed", sum.Completed),
			slog.Int("escalated", sum.Escalated))
	}()
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "dispatching", "count": len(targets)})
}

func (s *APIServer) handleActiveCalls(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active_calls": s.engine.Registry().ActiveCalls(),
		"count":        s.engine.Registry().Count(),
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
