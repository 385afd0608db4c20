package http

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const shutdownGrace = 10 * time.Second

// Server wraps the gin engine in an http.Server so the caller can stop it
// without severing in-flight requests.
type Server struct {
	Engine *gin.Engine
	srv    *http.Server
}

func NewServer(cfg RouterConfig) *Server {
	engine := NewRouter(cfg)
	return &Server{
		Engine: engine,
		srv: &http.Server{
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Run serves on address until ctx is canceled, then drains. Request contexts
// derive from ctx, so long-lived SSE streams observe the cancellation and
// release their connections instead of stalling the drain.
func (s *Server) Run(ctx context.Context, address string) error {
	s.srv.Addr = address
	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
