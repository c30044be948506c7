// Package httpapi serves health, metrics and channel status over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"artnet2fshdr/internal/detector"
	"artnet2fshdr/internal/logger"
	"artnet2fshdr/internal/scaling"
	"artnet2fshdr/internal/schema"
)

// ChannelStatus is one row of GET /channels.
type ChannelStatus struct {
	schema.ChannelDefinition
	Raw   *uint8   `json:"raw,omitempty"`
	Value *float64 `json:"value,omitempty"`
}

// Server is the status HTTP server.
type Server struct {
	log      logger.Logger
	schema   *schema.Schema
	detector *detector.Detector
	gatherer prometheus.Gatherer
	srv      *http.Server
}

// NewServer конструктор.
func NewServer(log logger.Logger, addr string, s *schema.Schema, d *detector.Detector, g prometheus.Gatherer) *Server {
	srv := &Server{
		log:      log,
		schema:   s,
		detector: d,
		gatherer: g,
	}
	srv.srv = &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv
}

// Router builds the chi routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/channels", s.channels)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Start serves in the background until Stop.
func (s *Server) Start() {
	go func() {
		s.log.With(logger.Fields{"module": "http"}).Infof("status server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.With(logger.Fields{"module": "http"}).Errorf("status server: %v", err)
		}
	}()
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) channels(w http.ResponseWriter, _ *http.Request) {
	baseline := s.detector.Snapshot()

	defs := s.schema.Definitions()
	out := make([]ChannelStatus, 0, len(defs))
	for _, d := range defs {
		st := ChannelStatus{ChannelDefinition: d}
		if raw, ok := baseline[d.Index]; ok {
			v := scaling.Scale(d, raw)
			st.Raw = &raw
			st.Value = &v
		}
		out = append(out, st)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.log.With(logger.Fields{"module": "http"}).Errorf("encode channels: %v", err)
	}
}
