package widget

import (
	"context"
	"sync"
	"time"

	"github.com/go-go-golems/remoni/pkg/client"
	"github.com/go-go-golems/remoni/pkg/render"
)

type fakeView struct {
	mu      sync.Mutex
	input   string
	active  bool
	renders []render.Tree
	onSend  func()
	onKey   func(Key)
	clears  int
}

func (v *fakeView) OnSend(f func())   { v.mu.Lock(); v.onSend = f; v.mu.Unlock() }
func (v *fakeView) OnKey(f func(Key)) { v.mu.Lock(); v.onKey = f; v.mu.Unlock() }

func (v *fakeView) InputValue() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.input
}

func (v *fakeView) ClearInput() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.input = ""
	v.clears++
}

func (v *fakeView) SetActive(b bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = b
}

func (v *fakeView) Render(t render.Tree) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renders = append(v.renders, t)
}

func (v *fakeView) typeText(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.input = s
}

func (v *fakeView) press(k Key) {
	v.mu.Lock()
	f := v.onKey
	v.mu.Unlock()
	f(k)
}

func (v *fakeView) clickSend() {
	v.mu.Lock()
	f := v.onSend
	v.mu.Unlock()
	f()
}

func (v *fakeView) renderCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.renders)
}

func (v *fakeView) lastTree() render.Tree {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.renders) == 0 {
		return render.Tree{}
	}
	return v.renders[len(v.renders)-1]
}

// fakeClient answers through respond; calls are recorded.
type fakeClient struct {
	mu      sync.Mutex
	calls   []string
	respond func(ctx context.Context, message string) (*client.Reply, error)
}

func (c *fakeClient) Chat(ctx context.Context, message string) (*client.Reply, error) {
	c.mu.Lock()
	c.calls = append(c.calls, message)
	respond := c.respond
	c.mu.Unlock()
	return respond(ctx, message)
}

func (c *fakeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func replyWith(answer string, plots, showList []string) func(context.Context, string) (*client.Reply, error) {
	return func(context.Context, string) (*client.Reply, error) {
		r := &client.Reply{Answer: answer}
		for _, p := range plots {
			r.Images = append(r.Images, client.Image{Source: client.ImageFromPlots, Ref: p})
		}
		for _, p := range showList {
			r.Images = append(r.Images, client.Image{Source: client.ImageFromShowList, Ref: p})
		}
		return r, nil
	}
}

// manualScheduler fires callbacks only when told to.
type manualScheduler struct {
	mu      sync.Mutex
	pending []scheduled
}

type scheduled struct {
	d       time.Duration
	f       func()
	stopped *bool
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	stopped := false
	s.pending = append(s.pending, scheduled{d: d, f: f, stopped: &stopped})
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		was := !stopped
		stopped = true
		return was
	}
}

// fireNext runs the oldest scheduled callback and returns its delay.
func (s *manualScheduler) fireNext() (time.Duration, bool) {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return 0, false
	}
	next := s.pending[0]
	s.pending = s.pending[1:]
	stopped := *next.stopped
	*next.stopped = true
	s.mu.Unlock()
	if !stopped {
		next.f()
	}
	return next.d, true
}
