package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/remoni/pkg/api"
	"github.com/go-go-golems/remoni/pkg/render"
	"github.com/go-go-golems/remoni/pkg/widget"
)

// Sender is the part of *tea.Program the bridge needs.
type Sender interface {
	Send(msg tea.Msg)
}

// refreshMsg tells the model to pull the bridge state.
type refreshMsg struct{}

// Bridge is the widget.View backed by a Bubble Tea program. The widget calls it
// from arbitrary goroutines; the model reads it from the program loop. Render only
// keeps the newest tree, so out-of-order notifications can never show stale state.
type Bridge struct {
	mu     sync.Mutex
	sender Sender

	tree     render.Tree
	active   bool
	input    string
	clearSeq int
	vitals   *api.Vitals
	piStatus *api.PiStatus

	onSend func()
	onKey  func(widget.Key)
}

var _ widget.View = (*Bridge)(nil)

func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach connects the bridge to a running program.
func (b *Bridge) Attach(s Sender) {
	b.mu.Lock()
	b.sender = s
	b.mu.Unlock()
	b.notify()
}

func (b *Bridge) notify() {
	b.mu.Lock()
	s := b.sender
	b.mu.Unlock()
	if s != nil {
		// Program.Send blocks until the loop reads it, and the loop may be the caller.
		go s.Send(refreshMsg{})
	}
}

func (b *Bridge) OnSend(f func()) {
	b.mu.Lock()
	b.onSend = f
	b.mu.Unlock()
}

func (b *Bridge) OnKey(f func(widget.Key)) {
	b.mu.Lock()
	b.onKey = f
	b.mu.Unlock()
}

func (b *Bridge) InputValue() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.input
}

func (b *Bridge) ClearInput() {
	b.mu.Lock()
	b.input = ""
	b.clearSeq++
	b.mu.Unlock()
	b.notify()
}

func (b *Bridge) SetActive(active bool) {
	b.mu.Lock()
	b.active = active
	b.mu.Unlock()
	b.notify()
}

func (b *Bridge) Render(tree render.Tree) {
	b.mu.Lock()
	if tree.Version >= b.tree.Version {
		b.tree = tree
	}
	b.mu.Unlock()
	b.notify()
}

func (b *Bridge) SetVitals(v api.Vitals) {
	b.mu.Lock()
	b.vitals = &v
	b.mu.Unlock()
	b.notify()
}

func (b *Bridge) SetPiStatus(s api.PiStatus) {
	b.mu.Lock()
	b.piStatus = &s
	b.mu.Unlock()
	b.notify()
}

func (b *Bridge) setInput(v string) {
	b.mu.Lock()
	b.input = v
	b.mu.Unlock()
}

func (b *Bridge) pressKey(k widget.Key) {
	b.mu.Lock()
	f := b.onKey
	b.mu.Unlock()
	if f != nil {
		f(k)
	}
}

func (b *Bridge) clickSend() {
	b.mu.Lock()
	f := b.onSend
	b.mu.Unlock()
	if f != nil {
		f()
	}
}

type bridgeState struct {
	tree     render.Tree
	active   bool
	clearSeq int
	vitals   *api.Vitals
	piStatus *api.PiStatus
}

func (b *Bridge) snapshot() bridgeState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bridgeState{
		tree:     b.tree,
		active:   b.active,
		clearSeq: b.clearSeq,
		vitals:   b.vitals,
		piStatus: b.piStatus,
	}
}
