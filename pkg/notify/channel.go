package notify

import (
	"context"
	"io"
)

// ChannelTransport delivers events sent on a Go channel. Closing the channel
// behaves like a dropped connection.
type ChannelTransport struct {
	Events <-chan Event
}

func (t ChannelTransport) Run(ctx context.Context, emit func(Event)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-t.Events:
			if !ok {
				return io.EOF
			}
			emit(ev)
		}
	}
}
