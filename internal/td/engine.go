package td

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrEngineUnavailable = errors.New("td: native engine not built in (build with -tags tdjson)")
	ErrDestroyed         = errors.New("td: engine destroyed")
)

// Native is the raw engine: JSON text in, JSON text out. Receive and
// Execute return "" when there is nothing to report.
type Native interface {
	Send(request string)
	Receive(timeout time.Duration) string
	Execute(request string) string
	Destroy()
}

// fatalHandler is the process-wide target of the engine's fatal error
// callback. The engine supports a single callback, so the last
// registration wins.
var fatalHandler atomic.Pointer[func(string)]

func setFatalHandler(fn func(string)) {
	if fn == nil {
		fatalHandler.Store(nil)
		return
	}
	fatalHandler.Store(&fn)
}

func dispatchFatal(message string) {
	if fn := fatalHandler.Load(); fn != nil {
		(*fn)(message)
	}
}

// FatalHandler returns the default fatal error callback: log at fatal level
// and terminate the process.
func FatalHandler(logger *zap.Logger) func(string) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(message string) {
		logger.Fatal("tdlib fatal error", zap.String("message", message))
	}
}

type BindingOption func(*Binding)

func WithLogger(l *zap.Logger) BindingOption {
	return func(b *Binding) {
		if l != nil {
			b.logger = l
		}
	}
}

// Binding exchanges structured requests and events with a Native engine.
type Binding struct {
	native    Native
	logger    *zap.Logger
	mu        sync.Mutex
	destroyed bool
}

func NewBinding(native Native, opts ...BindingOption) *Binding {
	b := &Binding{
		native: native,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Binding) alive() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return ErrDestroyed
	}
	return nil
}

// Send is fire-and-forget; answers arrive later through Receive.
func (b *Binding) Send(req Request) error {
	if err := b.alive(); err != nil {
		return err
	}
	data, err := Encode(req)
	if err != nil {
		return err
	}
	b.native.Send(string(data))
	b.logger.Debug("request sent", zap.String("type", req.Type))
	return nil
}

// Receive blocks up to timeout. A nil event with nil error means nothing
// arrived.
func (b *Binding) Receive(timeout time.Duration) (*Event, error) {
	if err := b.alive(); err != nil {
		return nil, err
	}
	return Decode([]byte(b.native.Receive(timeout)))
}

// Execute runs a request the engine can answer synchronously.
func (b *Binding) Execute(req Request) (*Event, error) {
	if err := b.alive(); err != nil {
		return nil, err
	}
	data, err := Encode(req)
	if err != nil {
		return nil, err
	}
	ev, err := Decode([]byte(b.native.Execute(string(data))))
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", req.Type, err)
	}
	return ev, nil
}

// Destroy releases the engine. Only the first call reaches the engine.
func (b *Binding) Destroy() {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	b.destroyed = true
	b.mu.Unlock()

	b.native.Destroy()
	b.logger.Debug("engine destroyed")
}
