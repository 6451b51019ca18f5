// Package webhook delivers updates pushed by the platform over HTTP instead
// of long polling.
package webhook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"chat-sentinel-bot/internal/platform"
	"chat-sentinel-bot/internal/platform/botapi"
)

const (
	updateBuffer    = 100
	shutdownTimeout = 5 * time.Second
	secretHeader    = "X-Telegram-Bot-Api-Secret-Token"
	maxBodySize     = 1 << 20
)

type Server struct {
	logger  *slog.Logger
	addr    string
	secret  string
	updates chan platform.Update
}

func NewServer(logger *slog.Logger, addr, secret string) *Server {
	return &Server{
		logger:  logger,
		addr:    addr,
		secret:  secret,
		updates: make(chan platform.Update, updateBuffer),
	}
}

var _ platform.Source = (*Server)(nil)

// Updates starts the HTTP listener and returns the decoded event stream. The
// listener shuts down and the channel closes when ctx is cancelled.
func (s *Server) Updates(ctx context.Context) <-chan platform.Update {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.handleWebhook)

	server := &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	go func() {
		s.logger.Info("Webhook server listening", "addr", s.addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Webhook server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Webhook server shutdown failed", "error", err)
		}
		close(s.updates)
	}()

	return s.updates
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.secret != "" && r.Header.Get(secretHeader) != s.secret {
		s.logger.Warn("Webhook request with bad secret", "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}
	upd, err := botapi.ParseUpdate(body)
	if err != nil {
		s.logger.Error("Failed to decode webhook update", "error", err)
		http.Error(w, fmt.Sprintf("bad update: %v", err), http.StatusBadRequest)
		return
	}
	if upd == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	select {
	case s.updates <- upd:
		w.WriteHeader(http.StatusOK)
	default:
		// a full buffer means the consumer stalled; drop rather than hold
		// the platform's delivery worker
		s.logger.Warn("Update buffer full, dropping update")
		w.WriteHeader(http.StatusOK)
	}
}
