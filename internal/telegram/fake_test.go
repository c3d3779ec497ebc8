package telegram

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tdclient/internal/config"
	"tdclient/internal/td"
)

// fakeNative replays queued engine output and records what was sent.
type fakeNative struct {
	queue        []string
	sent         []string
	executed     []string
	receives     int
	destroys     int
	afterDestroy int
}

func (f *fakeNative) Send(request string) {
	if f.destroys > 0 {
		f.afterDestroy++
	}
	f.sent = append(f.sent, request)
}

func (f *fakeNative) Receive(time.Duration) string {
	if f.destroys > 0 {
		f.afterDestroy++
	}
	f.receives++
	if len(f.queue) == 0 {
		return ""
	}
	next := f.queue[0]
	f.queue = f.queue[1:]
	return next
}

func (f *fakeNative) Execute(request string) string {
	f.executed = append(f.executed, request)
	return `{"@type":"ok"}`
}

func (f *fakeNative) Destroy() { f.destroys++ }

func (f *fakeNative) sentEvents(t *testing.T) []*td.Event {
	t.Helper()
	out := make([]*td.Event, 0, len(f.sent))
	for _, raw := range f.sent {
		ev, err := td.Decode([]byte(raw))
		require.NoError(t, err)
		out = append(out, ev)
	}
	return out
}

func (f *fakeNative) sentOfType(t *testing.T, typ string) []*td.Event {
	t.Helper()
	var out []*td.Event
	for _, ev := range f.sentEvents(t) {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// cancellingInput answers the phone prompt as if the operator pressed
// Ctrl+C right after typing it.
type cancellingInput struct {
	ScriptedInput
	cancel context.CancelFunc
}

func (c *cancellingInput) PhoneNumber(ctx context.Context) (string, error) {
	phone, err := c.ScriptedInput.PhoneNumber(ctx)
	c.cancel()
	return phone, err
}

// recorder is a sender that keeps requests in memory.
type recorder struct {
	reqs []td.Request
	err  error
}

func (r *recorder) Send(req td.Request) error {
	if r.err != nil {
		return r.err
	}
	r.reqs = append(r.reqs, req)
	return nil
}

func (r *recorder) types() []string {
	out := make([]string, len(r.reqs))
	for i, req := range r.reqs {
		out[i] = req.Type
	}
	return out
}

func authUpdate(state string) string {
	return fmt.Sprintf(`{"@type":"updateAuthorizationState","authorization_state":{"@type":%q}}`, state)
}

func authEvent(t *testing.T, p td.Phase) *td.Event {
	t.Helper()
	ev, err := td.Decode([]byte(authUpdate(p.String())))
	require.NoError(t, err)
	return ev
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.APIID = 94575
	cfg.APIHash = "a3406de8d171bb422bb6ddf3bbd800e2"
	cfg.PollTimeout = time.Millisecond
	return &cfg
}
