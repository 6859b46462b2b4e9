// Zaparoo Autorotate
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Autorotate.
//
// Zaparoo Autorotate is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Autorotate is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Autorotate.  If not, see <http://www.gnu.org/licenses/>.

// Package api serves the local HTTP control API and streams notifications
// to websocket clients.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/methods"
	apimiddleware "github.com/ZaparooProject/zaparoo-autorotate/pkg/api/middleware"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

const (
	// RequestTimeout covers the longest device exchange plus the wait for
	// the link.
	RequestTimeout    = 75 * time.Second
	shutdownTimeout   = 2 * time.Second
	notificationQueue = 64
	NotificationsPath = "/api/notifications"
	sessionIDKey      = "id"
)

// Server is the local API server.
type Server struct {
	svc     *service.Service
	ws      *melody.Melody
	limiter *apimiddleware.IPRateLimiter
	router  chi.Router
}

// NewServer builds the router. It doesn't listen until Serve is called.
func NewServer(svc *service.Service) *Server {
	s := &Server{
		svc:     svc,
		ws:      melody.New(),
		limiter: apimiddleware.NewIPRateLimiter(nil),
	}

	// only local pages may open the socket
	s.ws.Upgrader.CheckOrigin = func(r *http.Request) bool {
		return apimiddleware.IsLoopbackAddr(r.RemoteAddr)
	}
	s.ws.HandleConnect(func(session *melody.Session) {
		id := uuid.NewString()
		session.Set(sessionIDKey, id)
		log.Debug().Str("session", id).Str("addr", session.Request.RemoteAddr).
			Msg("websocket client connected")
	})
	s.ws.HandleDisconnect(func(session *melody.Session) {
		id, _ := session.Get(sessionIDKey)
		log.Debug().Interface("session", id).Msg("websocket client disconnected")
	})
	s.ws.HandleMessage(apimiddleware.WebSocketRateLimitHandler(s.limiter, handleWSMessage))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(apimiddleware.LoopbackOnly)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get(NotificationsPath, func(w http.ResponseWriter, r *http.Request) {
		if err := s.ws.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(apimiddleware.HTTPRateLimitMiddleware(s.limiter))
		r.Use(middleware.Timeout(RequestTimeout))

		r.Get("/api/status", methods.HandleStatus(svc))
		r.Get("/api/ports", methods.HandlePorts(svc))
		r.Post("/api/port", methods.HandleOpenPort(svc))
		r.Post("/api/rotate/{orientation}", methods.HandleRotate(svc))
		r.Post("/api/autorotate", methods.HandleToggle(svc))
		r.Post("/api/test", methods.HandleTest(svc))
		r.Post("/api/query", methods.HandleQuery(svc))
		r.Post("/api/recalibrate", methods.HandleRecalibrate(svc))
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func handleWSMessage(session *melody.Session, msg []byte) {
	// ping command for heartbeat operation
	if bytes.Equal(msg, []byte("ping")) {
		if err := session.Write([]byte("pong")); err != nil {
			log.Error().Err(err).Msg("sending pong")
		}
		return
	}

	data, err := json.Marshal(models.ErrorResponse{
		Error: "unsupported message",
		Kind:  methods.KindInvalid,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal websocket error")
		return
	}
	if err := session.Write(data); err != nil {
		log.Error().Err(err).Msg("sending websocket error")
	}
}

// broadcastNotifications forwards every notification to all websocket
// clients until the channel closes.
func (s *Server) broadcastNotifications(notifications <-chan models.Notification) {
	for notif := range notifications {
		data, err := json.Marshal(notif)
		if err != nil {
			log.Error().Err(err).Msg("marshalling notification")
			continue
		}
		if err := s.ws.Broadcast(data); err != nil {
			log.Error().Err(err).Msg("broadcasting notification")
		}
	}
}

// Serve listens on listen and blocks until ctx is cancelled or the server
// fails.
func (s *Server) Serve(ctx context.Context, listen string) error {
	notifs, id := s.svc.Broker().Subscribe(notificationQueue)
	broadcastDone := make(chan struct{})
	go func() {
		defer close(broadcastDone)
		s.broadcastNotifications(notifs)
	}()
	defer func() {
		s.svc.Broker().Unsubscribe(id)
		<-broadcastDone
	}()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", listen, err)
	}
	s.limiter.StartCleanup(ctx)

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("API server listening")
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if closeErr := s.ws.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing websocket sessions")
		}
		err = srv.Shutdown(shutdownCtx)
		<-serveErr
	}

	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("API server failed: %w", err)
	}
	log.Info().Msg("API server stopped")
	return nil
}
