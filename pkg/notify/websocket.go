package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// WebsocketTransport reads JSON frames of the form {"event": "...", "data": {...}}.
type WebsocketTransport struct {
	URL    string
	Dialer *websocket.Dialer
	Header http.Header
}

// WebsocketURL maps an http(s) server URL plus path onto the matching ws(s) URL.
func WebsocketURL(serverURL, path string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(serverURL))
	if err != nil {
		return "", errors.Wrap(err, "parse server url")
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	return u.String(), nil
}

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (t *WebsocketTransport) Run(ctx context.Context, emit func(Event)) error {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, t.URL, t.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return errors.Wrapf(err, "dial %s", t.URL)
	}
	defer func() { _ = conn.Close() }()

	wsLog := log.With().
		Str("component", "notify").
		Str("transport", "websocket").
		Str("remote", conn.RemoteAddr().String()).
		Logger()
	wsLog.Info().Msg("push channel connected")

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "websocket read")
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var f wsFrame
		if err := json.Unmarshal(data, &f); err != nil || f.Event == "" {
			wsLog.Debug().Err(err).Int("bytes", len(data)).Msg("ignoring non-event frame")
			continue
		}
		emit(Event{Name: f.Event, Data: f.Data, ReceivedAt: time.Now()})
	}
}
