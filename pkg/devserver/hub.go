package devserver

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-go-golems/remoni/pkg/api"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	pushTopic = "remoni.push"

	subscriberBuffer = 16
)

// AlertHub fans push frames out to every connected client. Each subscriber
// receives frames in publish order. A subscriber whose buffer is full loses
// frames instead of holding up Publish.
type AlertHub struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger
}

func NewAlertHub(logger zerolog.Logger) *AlertHub {
	ps := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            64,
		BlockPublishUntilSubscriberAck: true,
	}, newWatermillLogger(logger))
	return &AlertHub{pubsub: ps, logger: logger}
}

func (h *AlertHub) Publish(event string, data any) error {
	payload, err := json.Marshal(api.Frame{Event: event, Data: data})
	if err != nil {
		return errors.Wrapf(err, "marshal %s frame", event)
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("event", event)
	if err := h.pubsub.Publish(pushTopic, msg); err != nil {
		return errors.Wrapf(err, "publish %s", event)
	}
	h.logger.Debug().Str("event", event).Str("msg_id", msg.UUID).Msg("push frame published")
	return nil
}

// Subscribe returns encoded frames until ctx is done.
func (h *AlertHub) Subscribe(ctx context.Context) (<-chan []byte, error) {
	msgs, err := h.pubsub.Subscribe(ctx, pushTopic)
	if err != nil {
		return nil, errors.Wrap(err, "subscribe to push topic")
	}
	out := make(chan []byte, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range msgs {
			payload := msg.Payload
			msg.Ack()
			select {
			case <-ctx.Done():
				return
			default:
			}
			select {
			case out <- payload:
			default:
				h.logger.Warn().
					Str("event", msg.Metadata.Get("event")).
					Str("msg_id", msg.UUID).
					Msg("slow push subscriber, dropping frame")
			}
		}
	}()
	return out, nil
}

func (h *AlertHub) Close() error {
	return h.pubsub.Close()
}
