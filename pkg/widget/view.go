package widget

import (
	"context"
	"time"

	"github.com/go-go-golems/remoni/pkg/client"
	"github.com/go-go-golems/remoni/pkg/render"
)

type Key string

const KeyEnter Key = "Enter"

// View is the surface the widget draws on: a message list, a text input, a send
// control and an "active" marker. Implementations must be safe to call from any
// goroutine.
type View interface {
	OnSend(func())
	OnKey(func(Key))
	InputValue() string
	ClearInput()
	SetActive(bool)
	Render(render.Tree)
}

type ChatClient interface {
	Chat(ctx context.Context, message string) (*client.Reply, error)
}

// Scheduler runs f once after d. The returned function cancels it.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type WallClock struct{}

func (WallClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}
