package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/go-go-golems/remoni/pkg/render"
	"github.com/go-go-golems/remoni/pkg/widget"
	"github.com/pkg/errors"
)

// LineView is a plain-text widget.View for pipes and dumb terminals. Each input
// line is submitted with Enter and every new message is printed once, oldest first.
type LineView struct {
	mu      sync.Mutex
	out     io.Writer
	input   string
	printed int
	resolve func(string) string

	onSend func()
	onKey  func(widget.Key)
}

var _ widget.View = (*LineView)(nil)

func NewLineView(out io.Writer, resolveImage func(string) string) *LineView {
	return &LineView{out: out, resolve: resolveImage}
}

func (v *LineView) OnSend(f func()) {
	v.mu.Lock()
	v.onSend = f
	v.mu.Unlock()
}

func (v *LineView) OnKey(f func(widget.Key)) {
	v.mu.Lock()
	v.onKey = f
	v.mu.Unlock()
}

func (v *LineView) InputValue() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.input
}

func (v *LineView) ClearInput() {
	v.mu.Lock()
	v.input = ""
	v.mu.Unlock()
}

func (v *LineView) SetActive(bool) {}

func (v *LineView) Render(tree render.Tree) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fresh := tree.Version - v.printed
	if fresh <= 0 {
		return
	}
	if fresh > tree.Len() {
		fresh = tree.Len()
	}
	for i := fresh - 1; i >= 0; i-- {
		fmt.Fprintln(v.out, v.line(tree.Nodes[i]))
	}
	v.printed = tree.Version
}

func (v *LineView) line(n render.Node) string {
	switch {
	case n.Kind == render.NodeImage:
		ref := n.Content
		if v.resolve != nil {
			ref = v.resolve(ref)
		}
		return "REMONI: [image] " + ref
	case n.Sender.IsBot():
		return "REMONI: " + n.Content
	default:
		return "You: " + n.Content
	}
}

// Run submits every line read from in until EOF or ctx is done.
func (v *LineView) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errc:
			return errors.Wrap(err, "read input")
		case line := <-lines:
			v.mu.Lock()
			v.input = line
			f := v.onKey
			v.mu.Unlock()
			if f != nil {
				f(widget.KeyEnter)
			}
		}
	}
}
