package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"tdclient/internal/config"
	"tdclient/internal/td"
)

var (
	ErrRunning     = errors.New("telegram: session already running")
	ErrSessionDone = errors.New("telegram: session already finished")
)

// Engine is the typed engine boundary; *td.Binding implements it.
type Engine interface {
	Send(req td.Request) error
	Receive(timeout time.Duration) (*td.Event, error)
	Execute(req td.Request) (*td.Event, error)
	Destroy()
}

type (
	UpdateHandler  func(ev *td.Event)
	ErrorHandler   func(ev *td.Event)
	RoutineHandler func()
)

type Option func(*Session)

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithUpdateHandler(h UpdateHandler) Option {
	return func(s *Session) { s.handlers.update = h }
}

func WithErrorHandler(h ErrorHandler) Option {
	return func(s *Session) {
		if h != nil {
			s.handlers.err = h
		}
	}
}

func WithRoutineHandler(h RoutineHandler) Option {
	return func(s *Session) { s.handlers.routine = h }
}

type handlers struct {
	update  UpdateHandler
	err     ErrorHandler
	routine RoutineHandler
}

// Session drives one engine instance from the first authorization request
// to shutdown. It is single-use.
type Session struct {
	cfg    *config.Config
	engine Engine
	auth   *Authorizer
	logger *zap.Logger

	mu       sync.Mutex
	handlers handlers
	running  bool
	done     bool
}

func NewSession(cfg *config.Config, engine Engine, input InputProvider, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}
	if input == nil {
		return nil, errors.New("telegram: input provider is required")
	}
	s := &Session{
		cfg:    cfg,
		engine: engine,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.handlers.err == nil {
		s.handlers.err = s.logError
	}
	s.auth = NewAuthorizer(cfg, engine, input, s.logger.Named("auth"))
	return s, nil
}

func (s *Session) Authorized() bool { return s.auth.Authorized() }

func (s *Session) SetUpdateHandler(h UpdateHandler) error {
	return s.setHandler(func(hs *handlers) { hs.update = h })
}

func (s *Session) SetErrorHandler(h ErrorHandler) error {
	if h == nil {
		h = s.logError
	}
	return s.setHandler(func(hs *handlers) { hs.err = h })
}

func (s *Session) SetRoutineHandler(h RoutineHandler) error {
	return s.setHandler(func(hs *handlers) { hs.routine = h })
}

func (s *Session) setHandler(set func(*handlers)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrRunning
	}
	if s.done {
		return ErrSessionDone
	}
	set(&s.handlers)
	return nil
}

func (s *Session) start() (handlers, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return handlers{}, ErrRunning
	}
	if s.done {
		return handlers{}, ErrSessionDone
	}
	s.running = true
	return s.handlers, nil
}

func (s *Session) finish() {
	s.mu.Lock()
	s.running, s.done = false, true
	s.mu.Unlock()
}

// Run polls the engine until ctx is cancelled or the engine closes the
// session. Cancellation returns nil; a closed session returns an error
// matching ErrSessionClosed. The engine is destroyed on every exit path.
func (s *Session) Run(ctx context.Context) error {
	hs, err := s.start()
	if err != nil {
		return err
	}
	defer s.finish()
	defer s.engine.Destroy()

	s.applyVerbosity()

	if err := s.engine.Send(td.NewRequest(td.TypeGetAuthorizationState, nil)); err != nil {
		return fmt.Errorf("request authorization state: %w", err)
	}
	s.logger.Info("authorization started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("execution stopped by the user")
			return nil
		default:
		}

		if err := s.tick(ctx, hs); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				s.logger.Info("execution stopped by the user")
				return nil
			}
			return err
		}
	}
}

func (s *Session) tick(ctx context.Context, hs handlers) error {
	ev, err := s.engine.Receive(s.cfg.PollTimeout)
	switch {
	case errors.Is(err, td.ErrDestroyed):
		return err
	case err != nil:
		s.logger.Error("discarding undecodable engine output", zap.Error(err))
	case ev != nil:
		if err := s.dispatch(ctx, hs, ev); err != nil {
			return err
		}
	}

	if hs.routine != nil {
		hs.routine()
	}
	return nil
}

func (s *Session) dispatch(ctx context.Context, hs handlers, ev *td.Event) error {
	// Authorization updates keep flowing after login so that a later
	// closed state still ends the session.
	if err := s.auth.Handle(ctx, ev); err != nil {
		return err
	}

	// Observers see every event, authorization updates included.
	if hs.update != nil {
		hs.update(ev)
	}

	if ev.Type == td.TypeError {
		hs.err(ev)
		if err := s.auth.HandleError(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) applyVerbosity() {
	res, err := s.engine.Execute(td.NewRequest(td.TypeSetLogVerbosityLevel, map[string]any{
		"new_verbosity_level": s.cfg.Verbosity,
	}))
	if err != nil {
		s.logger.Warn("set log verbosity", zap.Error(err))
		return
	}
	if _, msg, ok := res.ErrorInfo(); ok {
		s.logger.Warn("set log verbosity rejected", zap.String("message", msg))
	}
}
