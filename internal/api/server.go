// Package api exposes the HTTP surface: the websocket upgrade endpoint the
// chat protocol rides on, a health probe and the expvar counters.
package api

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/websocket"
	"github.com/jdnichols/parley/internal/config"
	"github.com/jdnichols/parley/internal/server"
	"github.com/jdnichols/parley/internal/stats"
)

type Server struct {
	log   *log.Logger
	cs    *server.ChatServer
	stats *stats.StatsUpdater
	mux   *http.Server

	upgrader websocket.Upgrader
}

func NewServer(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, su *stats.StatsUpdater, cfg *config.Config, accessLog io.Writer) *Server {
	s := &Server{
		log:   logger,
		cs:    cs,
		stats: su,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// terminal clients dial without an Origin header
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux.HandleFunc("GET /ws", s.serveWs)
	mux.HandleFunc("GET /healthz", s.healthz)

	var h http.Handler = mux
	h = handlers.LoggingHandler(accessLog, h)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)

	s.mux = &http.Server{
		Addr:    cfg.Addr,
		Handler: h,
	}

	return s
}

func (s *Server) Start() error {
	s.log.Printf("listening on %s", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("upgrade %s: %v", r.RemoteAddr, err)
		return
	}

	client := server.NewClient(conn, s.cs, s.log, s.stats)
	s.cs.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}
