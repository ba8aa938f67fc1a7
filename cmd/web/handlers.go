package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	apimiddleware "github.com/narvanalabs/hellostack/internal/api/middleware"
	"github.com/narvanalabs/hellostack/internal/health"
	"github.com/narvanalabs/hellostack/pkg/logger"
	"github.com/narvanalabs/hellostack/web/pages"
	"github.com/narvanalabs/hellostack/web/view"
)

const wsWriteTimeout = 10 * time.Second

// messageFrame is the WebSocket payload sent once the screen settles.
type messageFrame struct {
	Message string `json:"message"`
}

// webServer serves the greeting screen. Every page load and every WebSocket
// connection mounts its own screen.
type webServer struct {
	fetcher  view.Fetcher
	checker  *health.Checker
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

func newWebServer(fetcher view.Fetcher, checker *health.Checker, log *logger.Logger) *webServer {
	return &webServer{
		fetcher: fetcher,
		checker: checker,
		logger:  log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *webServer) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apimiddleware.RequestLogger(s.logger.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/ws", s.handleWS)
	r.Get("/health", s.checker.Handler())

	return r
}

// handleIndex mounts a screen for the lifetime of the request and renders it
// once the fetch settles. A failed fetch still renders the page.
func (s *webServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	screen := view.NewScreen(s.fetcher, s.logger)
	screen.Mount(r.Context())
	defer screen.Unmount()

	select {
	case <-screen.Done():
	case <-r.Context().Done():
		return
	}

	data := pages.GreetingData{
		Message: screen.Message(),
		Live:    r.URL.Query().Has("live"),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.Greeting(data).Render(r.Context(), w); err != nil {
		s.logger.WithContext(r.Context()).Error("failed to render page", "error", err)
	}
}

// handleWS mounts a screen for the lifetime of the WebSocket connection. The
// message is sent once it settles; the screen is unmounted when the peer
// disconnects.
func (s *webServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithContext(r.Context()).Error("failed to upgrade websocket", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reading is the only way to notice the peer going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	screen := view.NewScreen(s.fetcher, s.logger)
	screen.Mount(ctx)
	defer screen.Unmount()

	select {
	case <-screen.Done():
	case <-ctx.Done():
		return
	}

	if err := writeFrame(conn, messageFrame{Message: screen.Message()}); err != nil {
		s.logger.WithContext(r.Context()).Debug("failed to send message", "error", err)
		return
	}

	<-ctx.Done()
}

// writeFrame sends frame as JSON within wsWriteTimeout.
func writeFrame(conn *websocket.Conn, frame messageFrame) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(frame)
}
