// Package devserver is a local stand-in for the nurse backend: the chat endpoint,
// the patient status queries, and websocket and SSE push channels fed from an
// in-process alert hub.
package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-go-golems/remoni/pkg/api"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	maxBodyBytes = 1 << 20
)

type Server struct {
	state    *State
	hub      *AlertHub
	answerer Answerer
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

type Option func(*Server)

func WithAnswerer(a Answerer) Option {
	return func(s *Server) { s.answerer = a }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func New(state *State, hub *AlertHub, opts ...Option) *Server {
	s := &Server{
		state:  state,
		hub:    hub,
		logger: log.With().Str("component", "devserver").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, o := range opts {
		o(s)
	}
	if s.answerer == nil {
		s.answerer = NewKeywordAnswerer(state)
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Post("/chat", s.handleChat)
	r.Post("/sensor_data", s.handleSensorData)
	r.Get("/ws", s.handleWebsocket)
	r.Get("/events", s.handleEvents)

	r.Route("/api", func(r chi.Router) {
		r.Get("/pi_status", s.handleGetPiStatus)
		r.Post("/pi_status", s.handleSetPiStatus)
		r.Get("/latest_vitals_from_pi", s.handleGetVitals)
		r.Post("/vitals", s.handlePostVitals)
		r.Get("/fall_alerts", s.handleGetAlerts)
		r.Post("/fall_alerts", s.handlePostAlert)
	})
	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", addr).Msg("devserver listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Wrap(srv.Shutdown(shutdownCtx), "shutdown")
	})
	return g.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	respondJSON(w, http.StatusOK, s.answerer.Answer(r.Context(), req.Message))
}

func (s *Server) handleSensorData(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sensors map[string]float64 `json:"sensors"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.state.AddSensors(req.Sensors)
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleGetPiStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.state.PiStatus())
}

func (s *Server) handleSetPiStatus(w http.ResponseWriter, r *http.Request) {
	var req api.PiStatus
	if !decodeJSON(w, r, &req) {
		return
	}
	status := s.state.SetPiConnected(req.Connected)
	s.publish(api.EventPiStatus, status)
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleGetVitals(w http.ResponseWriter, _ *http.Request) {
	v, ok := s.state.Vitals()
	if !ok {
		respondJSON(w, http.StatusOK, map[string]any{})
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (s *Server) handlePostVitals(w http.ResponseWriter, r *http.Request) {
	var v api.Vitals
	if !decodeJSON(w, r, &v) {
		return
	}
	v = s.state.SetVitals(v)
	s.publish(api.EventVitalsUpdate, v)
	respondJSON(w, http.StatusOK, v)
}

func (s *Server) handleGetAlerts(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.state.Alerts())
}

func (s *Server) handlePostAlert(w http.ResponseWriter, r *http.Request) {
	var a api.Alert
	if !decodeJSON(w, r, &a) {
		return
	}
	if a.Message == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	a.ID = uuid.NewString()
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	s.state.AddAlert(a)
	s.publish(api.EventFallAlert, a)
	respondJSON(w, http.StatusCreated, a)
}

func (s *Server) publish(event string, data any) {
	if err := s.hub.Publish(event, data); err != nil {
		s.logger.Warn().Err(err).Str("event", event).Msg("push failed")
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames, err := s.hub.Subscribe(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("subscribe")
		return
	}
	connLog := s.logger.With().Str("remote", r.RemoteAddr).Logger()
	connLog.Info().Msg("websocket client connected")

	// The reader only detects the peer going away; clients never send frames.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	hello, _ := json.Marshal(api.Frame{Event: api.EventPiStatus, Data: s.state.PiStatus()})
	if err := writeFrame(conn, hello); err != nil {
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			connLog.Info().Msg("websocket client disconnected")
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := writeFrame(conn, frame); err != nil {
				connLog.Warn().Err(err).Msg("websocket write failed, dropping client")
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, frame []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	frames, err := s.hub.Subscribe(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "subscribe failed")
		return
	}
	rc := http.NewResponseController(w)
	setupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := sendSSEEvent(w, rc, api.EventPiStatus, s.state.PiStatus()); err != nil {
		s.logger.Debug().Err(err).Msg("sse client gone")
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			var f struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal(frame, &f); err != nil {
				continue
			}
			if err := sendSSEEvent(w, rc, f.Event, f.Data); err != nil {
				s.logger.Debug().Err(err).Str("event", f.Event).Msg("sse client gone")
				return
			}
		}
	}
}
