package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/reporting"
	"hyperliquid-pnl-lab/internal/snapshot"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, status, errorBody{Error: errorDetail{
		Message:    msg,
		StatusCode: status,
		RequestID:  RequestID(r.Context()),
	}})
}

// fail writes err with its mapped status. Internal errors are logged and masked.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		msg = "internal server error"
	}
	s.writeError(w, r, status, msg)
}

// rangeParams reads the required start and end query parameters.
func (s *Server) rangeParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" || end == "" {
		s.writeError(w, r, http.StatusBadRequest, "start and end dates are required (YYYY-MM-DD)")
		return "", "", false
	}
	return start, end, true
}

// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
	})
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status       string    `json:"status"`
	Version      string    `json:"version,omitempty"`
	Backend      string    `json:"storage_backend,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	Uptime       string    `json:"uptime"`
	Requests     int64     `json:"requests"`
	LiveWatching *int      `json:"live_watching,omitempty"`
}

// GET /status
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Status:    "running",
		Version:   s.version,
		Backend:   s.backend,
		StartedAt: s.startedAt,
		Uptime:    s.now().Sub(s.startedAt).Truncate(time.Second).String(),
		Requests:  s.requests.Load(),
	}
	if s.watching != nil {
		n := s.watching()
		resp.LiveWatching = &n
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// GET /api/wallets/{wallet}/pnl?start=&end=[&format=csv|markdown|table]
func (s *Server) handleWalletPnl(w http.ResponseWriter, r *http.Request) {
	start, end, ok := s.rangeParams(w, r)
	if !ok {
		return
	}

	format := reporting.FormatJSON
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := reporting.ParseFormat(v)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		format = f
	}

	resp, err := s.pnl.GetWalletPnl(r.Context(), r.PathValue("wallet"), start, end)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	switch format {
	case reporting.FormatJSON:
		s.writeJSON(w, http.StatusOK, resp)
	default:
		w.Header().Set("Content-Type", contentType(format))
		report := reporting.NewReport(resp, nil, s.now())
		if err := reporting.Render(w, report, format); err != nil {
			s.logger.Warn("render report failed", zap.Error(err))
		}
	}
}

func contentType(f reporting.Format) string {
	switch f {
	case reporting.FormatCSV:
		return "text/csv; charset=utf-8"
	case reporting.FormatMarkdown:
		return "text/markdown; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

// GET /api/snapshots/tracked/list
func (s *Server) handleTrackedList(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.snapshots.Tracked(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if wallets == nil {
		wallets = []*domain.TrackedWallet{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"wallets": wallets,
		"count":   len(wallets),
	})
}

// POST /api/snapshots/capture-all
func (s *Server) handleCaptureAll(w http.ResponseWriter, r *http.Request) {
	report, err := s.snapshots.CaptureAll(r.Context(), snapshot.TriggerManual)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Snapshot capture complete",
		"success": report.Success,
		"failed":  report.Failed,
		"wallets": report.Wallets,
	})
}

// POST /api/snapshots/capture/{wallet}
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshots.Capture(r.Context(), r.PathValue("wallet"), snapshot.TriggerManual)
	if errors.Is(err, snapshot.ErrNoAccountState) {
		s.writeError(w, r, http.StatusNotFound, "no clearinghouse state available for this wallet")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Snapshot captured successfully",
		"snapshot": snap,
	})
}

type trackRequest struct {
	Name *string `json:"name"`
}

// POST /api/snapshots/track/{wallet} with optional body {"name": "..."}
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeError(w, r, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	res, err := s.snapshots.Track(r.Context(), r.PathValue("wallet"), req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":          "Wallet added to tracking",
		"tracked_wallet":   res.Wallet,
		"initial_snapshot": res.InitialSnapshot,
	})
}

// DELETE /api/snapshots/track/{wallet}
func (s *Server) handleUntrack(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.snapshots.Untrack(r.Context(), r.PathValue("wallet"))
	if err != nil {
		if statusFor(err) == http.StatusNotFound {
			s.writeError(w, r, http.StatusNotFound, "wallet not found in tracking list")
			return
		}
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Wallet removed from tracking",
		"wallet":  wallet,
	})
}

// GET /api/snapshots/{wallet}?start=&end=
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	start, end, ok := s.rangeParams(w, r)
	if !ok {
		return
	}
	snaps, err := s.snapshots.Snapshots(r.Context(), r.PathValue("wallet"), start, end)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if snaps == nil {
		snaps = []*domain.EquitySnapshot{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"wallet":    strings.ToLower(r.PathValue("wallet")),
		"start":     start,
		"end":       end,
		"snapshots": snaps,
		"count":     len(snaps),
	})
}
