package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/webaudit/internal/audit"
	"github.com/khanhnv2901/webaudit/internal/events"
	"github.com/khanhnv2901/webaudit/internal/storage"
)

// streamFrame is the envelope for snapshot, progress and error frames.
// Progress frames carry step/message, error frames status plus a
// diagnostic message, snapshots status plus the stored summary.
type streamFrame struct {
	Status  storage.Status  `json:"status,omitempty"`
	Step    string          `json:"step,omitempty"`
	Message string          `json:"message,omitempty"`
	Summary json.RawMessage `json:"summary,omitempty"`
}

// doneFrame is the terminal success frame: the summary fields sit at
// the top level next to the status, so a client reads results straight
// off the final frame without unwrapping an envelope.
type doneFrame struct {
	Status storage.Status `json:"status"`
	*audit.Summary
}

// handleAuditStream serves the progress stream for one audit. The first
// frame is always a snapshot of the persisted record; for a terminal
// audit the stream closes right after it. For a live audit the handler
// subscribes before snapshotting, so no event published after the
// snapshot read can be missed.
func (s *Server) handleAuditStream(w http.ResponseWriter, r *http.Request, id string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	// Subscribe first. The channel may already be gone for a finished
	// audit; the snapshot covers that case.
	var updates <-chan events.Event
	var unsubscribe func()
	if ch, ok := s.cfg.Audits.Channel(id); ok {
		updates, unsubscribe = ch.Subscribe()
		defer unsubscribe()
	}

	record, err := s.cfg.Audits.GetAudit(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, r, http.StatusNotFound, err)
			return
		}
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if !s.writeFrame(w, flusher, snapshotFrame(record)) {
		return
	}
	if record.Status.Terminal() {
		return
	}
	if updates == nil {
		// Audit is live per storage but its channel is already gone:
		// it reached terminal between our registry and storage reads.
		// Re-read and send the final state.
		s.streamFinalState(w, r, flusher, id)
		return
	}

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	ctx := r.Context()

	for {
		select {
		case ev, ok := <-updates:
			if !ok {
				// Closed without a terminal event on this subscription
				// (slow consumer dropped it). Recover from storage.
				s.streamFinalState(w, r, flusher, id)
				return
			}
			frame, err := eventFrame(ev)
			if err != nil {
				s.requestLogger(r).Error("failed to encode stream event", zap.Error(err))
				continue
			}
			if !s.writeFrame(w, flusher, frame) {
				return
			}
			if ev.Terminal() {
				return
			}
		case <-ticker.C:
			if !s.writeChunk(w, []byte(": ping\n\n")) {
				return
			}
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

// streamFinalState emits one last snapshot frame from storage. Used
// when the live channel is unavailable or closed early.
func (s *Server) streamFinalState(w http.ResponseWriter, r *http.Request, flusher http.Flusher, id string) {
	record, err := s.cfg.Audits.GetAudit(r.Context(), id)
	if err != nil {
		s.requestLogger(r).Error("failed to load final audit state", zap.Error(err))
		return
	}
	s.writeFrame(w, flusher, snapshotFrame(record))
}

func snapshotFrame(record *storage.Audit) streamFrame {
	frame := streamFrame{Status: record.Status}
	if record.Status.Terminal() && len(record.Summary) > 0 {
		if record.Status == storage.StatusError {
			// Error summaries are a JSON-encoded diagnostic string.
			var msg string
			if json.Unmarshal(record.Summary, &msg) == nil {
				frame.Message = msg
			}
		} else {
			frame.Summary = record.Summary
		}
	}
	return frame
}

func eventFrame(ev events.Event) (any, error) {
	switch ev.Kind {
	case events.KindProgress:
		return streamFrame{Step: ev.Step, Message: ev.Message}, nil
	case events.KindDone:
		if summary, ok := ev.Payload.(*audit.Summary); ok {
			return doneFrame{Status: storage.StatusDone, Summary: summary}, nil
		}
		return streamFrame{Status: storage.StatusDone}, nil
	case events.KindError:
		return streamFrame{Status: storage.StatusError, Message: ev.Message}, nil
	}
	return nil, errors.New("unknown event kind")
}

func (s *Server) writeFrame(w http.ResponseWriter, flusher http.Flusher, frame any) bool {
	payload, err := json.Marshal(frame)
	if err != nil {
		if s.cfg.Logger != nil {
			s.cfg.Logger.Error("failed to marshal stream frame", zap.Error(err))
		}
		return false
	}
	if !s.writeChunk(w, []byte("data: ")) {
		return false
	}
	if !s.writeChunk(w, payload) {
		return false
	}
	if !s.writeChunk(w, []byte("\n\n")) {
		return false
	}
	flusher.Flush()
	return true
}

func (s *Server) writeChunk(w http.ResponseWriter, data []byte) bool {
	if _, err := w.Write(data); err != nil {
		if s.cfg.Logger != nil {
			s.cfg.Logger.Error("failed to write stream chunk", zap.Error(err))
		}
		return false
	}
	return true
}
