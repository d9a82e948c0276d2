// Package serve implements the CLI `serve` command's HTTP surface: a plain
// static file server over a generated output tree. spec.md §1 explicitly
// scopes the real dev-server/HTTP-reverse-proxy layer out of the core, so
// this is deliberately the thinnest possible net/http wrapper, not a
// polished development server.
package serve

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/betty-gen/betty/internal/logger"
)

// Server serves the www subtree of a generated output directory.
type Server struct {
	httpServer *http.Server
	addr       string
}

// New builds a Server for outputDir's "www" subdirectory, listening on
// addr (e.g. "127.0.0.1:8000").
func New(addr, outputDir string) *Server {
	wwwDir := filepath.Join(outputDir, "www")
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(wwwDir)))
	return &Server{
		addr: addr,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// ListenAndServe blocks serving until ctx is cancelled or an error occurs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	log := logger.FromContext(ctx)
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.Serve(ln) }()
	log.Info("serving generated output", "addr", s.addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
