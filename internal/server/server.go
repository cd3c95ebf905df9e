package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/avatarsync/avatarsync/internal/core/avatar"
	"github.com/avatarsync/avatarsync/internal/core/config"
	"github.com/avatarsync/avatarsync/internal/core/events/bus"
	"github.com/avatarsync/avatarsync/internal/core/observability/log"
)

var timeNow = time.Now

// Server hosts the avatar tick loop and a websocket endpoint that accepts
// keyboard frames and streams movement diagnostics back out.
type Server struct {
	cfg    config.Server
	loop   *Loop
	bus    bus.Bus
	hub    *hub
	logger log.Log

	httpSrv *http.Server
	diagSub bus.Subscription

	running int32 // atomic bool
}

// New wires the server around an existing loop and bus.
func New(cfg config.Server, loop *Loop, b bus.Bus, logger log.Log) *Server {
	logger = logger.With(log.String("component", "server"))
	s := &Server{
		cfg:    cfg,
		loop:   loop,
		bus:    b,
		hub:    newHub(logger),
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.httpSrv = &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}
	return s
}

// Run blocks until ctx is cancelled or a component fails. The tick loop, the
// http listener and the diagnostics subscription run for exactly the lifetime
// of this call.
func (s *Server) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}
	defer atomic.StoreInt32(&s.running, 0)

	sub, err := s.bus.Subscribe(avatar.EventTypeMovementDiag, s.forwardDiag)
	if err != nil {
		return err
	}
	s.diagSub = sub
	defer func() { _ = sub.Cancel() }()

	s.logger.Info("server starting", log.String("addr", s.cfg.Addr))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.loop.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		err := s.httpSrv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		s.hub.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	s.logger.Info("server stopped")
	return err
}

// Running reports whether Run is active.
func (s *Server) Running() bool {
	return atomic.LoadInt32(&s.running) == 1
}

// forwardDiag serializes a diagnostic event and fans it out to every
// connected client.
func (s *Server) forwardDiag(ev bus.Event) error {
	diag, ok := ev.Data.(avatar.DiagnosticEvent)
	if !ok {
		s.logger.Warn("unexpected diagnostic payload type")
		return nil
	}
	frame, err := json.Marshal(diag)
	if err != nil {
		return err
	}
	s.hub.broadcast(frame)
	return nil
}
