// Package healthcheck serves the hosting platform's liveness probe. It
// carries zero business logic and runs independently of the message path.
package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// NormalizeListen accepts ":10000", "10000" or a full host:port address and
// returns a listen address, or "" when the input disables the server.
func NormalizeListen(listen string) string {
	listen = strings.TrimSpace(listen)
	if listen == "" || listen == "0" {
		return ""
	}
	if _, err := strconv.Atoi(listen); err == nil {
		return ":" + listen
	}
	return listen
}

// StartServer binds the listener synchronously (so address errors surface to
// the caller) and serves in the background until ctx is done or the caller
// shuts the returned server down.
func StartServer(ctx context.Context, logger *slog.Logger, listen, component string) (*http.Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "up"})
	})

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("health_server_error", "component", component, "addr", listen, "error", err.Error())
		}
	}()
	if ctx != nil {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_ = srv.Shutdown(shutdownCtx)
			cancel()
		}()
	}
	logger.Info("health_server_start", "component", component, "addr", listen)
	return srv, nil
}
