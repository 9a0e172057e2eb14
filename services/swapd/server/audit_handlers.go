package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"smartswap/observability"
	"smartswap/services/swapd/audit"
)

const wsWriteTimeout = 10 * time.Second

func (s *Server) handleAuditEntries(w http.ResponseWriter, r *http.Request) {
	entries := s.audit.Entries(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "capacity": s.audit.Capacity()})
}

func (s *Server) handleAuditStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.thresholds.Stats(s.audit.Entries(r.Context())))
}

func (s *Server) handleAuditAnomalies(w http.ResponseWriter, r *http.Request) {
	anomalies := s.thresholds.Detect(s.audit.Entries(r.Context()))
	observability.Anomalies().RecordScan(audit.CountBySeverity(anomalies))
	writeJSON(w, http.StatusOK, map[string]any{"anomalies": anomalies})
}

func (s *Server) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	blob, err := s.audit.Export(r.Context(), s.thresholds)
	if err != nil {
		s.logger.Error("audit export failed", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", attachment("json", s.now()))
	_, _ = w.Write(blob)
}

func (s *Server) handleAuditParquet(w http.ResponseWriter, r *http.Request) {
	entries := s.audit.Entries(r.Context())
	w.Header().Set("Content-Type", "application/vnd.apache.parquet")
	w.Header().Set("Content-Disposition", attachment("parquet", s.now()))
	if err := s.thresholds.WriteParquet(w, entries); err != nil {
		s.logger.Error("audit parquet export failed", slog.Any("error", err))
	}
}

func (s *Server) handleAuditClear(w http.ResponseWriter, r *http.Request) {
	if err := s.audit.Clear(r.Context()); err != nil {
		s.logger.Error("audit clear failed", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "clear failed")
		return
	}
	subject := ""
	if principal, ok := PrincipalFromContext(r.Context()); ok {
		subject = principal.Subject
	}
	s.logger.Warn("audit log cleared", slog.String("subject", subject))
	w.WriteHeader(http.StatusNoContent)
}

// handleAuditStream pushes every newly appended entry to a websocket client.
func (s *Server) handleAuditStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.cfg.StreamOrigins})
	if err != nil {
		s.logger.Warn("audit stream rejected",
			slog.String("origin", r.Header.Get("Origin")),
			slog.Any("error", err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	ctx := conn.CloseRead(r.Context())
	if err := s.streamAudit(ctx, conn); err != nil {
		if status := websocket.CloseStatus(err); status == -1 && ctx.Err() == nil {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamAudit(ctx context.Context, conn *websocket.Conn) error {
	entries := s.audit.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-entries:
			if !ok {
				return nil
			}
			if err := writeAuditEntry(ctx, conn, entry); err != nil {
				return err
			}
		}
	}
}

func writeAuditEntry(ctx context.Context, conn *websocket.Conn, entry audit.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

func attachment(ext string, now time.Time) string {
	return fmt.Sprintf("attachment; filename=\"swap-audit-%s.%s\"", now.UTC().Format("20060102T150405Z"), ext)
}
