package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Event is one message received on a push channel.
type Event struct {
	Name       string
	Data       json.RawMessage
	ReceivedAt time.Time
}

func (e Event) Decode(v any) error {
	if len(e.Data) == 0 {
		return errors.Errorf("event %q has no data", e.Name)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return errors.Wrapf(err, "decode %q event", e.Name)
	}
	return nil
}

type Handler interface {
	HandleEvent(ctx context.Context, ev Event)
}

type HandlerFunc func(ctx context.Context, ev Event)

func (f HandlerFunc) HandleEvent(ctx context.Context, ev Event) { f(ctx, ev) }

// Transport is a single connection to a push channel. Run blocks, calling emit for
// every event, until ctx is cancelled or the connection ends.
type Transport interface {
	Run(ctx context.Context, emit func(Event)) error
}
