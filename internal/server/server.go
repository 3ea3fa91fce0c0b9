// Package server assembles the router: middleware chain plus both
// transport adapters.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"model-gateway/internal/config"
	"model-gateway/internal/gateway"
	"model-gateway/internal/handler"
	"model-gateway/internal/xmlrpc"
)

type Server struct {
	Router *mux.Router
	http   *http.Server
	cfg    *config.Config
}

// New builds the middleware chain and mounts both transports.
func New(cfg *config.Config, mediator *gateway.Mediator, log *logrus.Logger, chain ...mux.MiddlewareFunc) *Server {
	router := mux.NewRouter()
	for _, mw := range chain {
		router.Use(mw)
	}

	handler.New(mediator, log).Register(router)
	xmlrpc.New(mediator, log).Register(router)

	return &Server{
		Router: router,
		cfg:    cfg,
		http: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// ListenAndServe starts the server, with TLS when configured.
func (s *Server) ListenAndServe() error {
	if s.cfg.Server.TLS.CertFile != "" && s.cfg.Server.TLS.KeyFile != "" {
		return s.http.ListenAndServeTLS(s.cfg.Server.TLS.CertFile, s.cfg.Server.TLS.KeyFile)
	}
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
