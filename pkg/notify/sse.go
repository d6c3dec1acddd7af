package notify

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SSETransport reads a text/event-stream. Events without an explicit name are
// reported as "message".
type SSETransport struct {
	URL    string
	Client *http.Client
}

func (t *SSETransport) Run(ctx context.Context, emit func(Event)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return errors.Wrap(err, "build sse request")
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	hc := t.Client
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "connect %s", t.URL)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("sse %s: %s", t.URL, resp.Status)
	}
	log.Info().Str("component", "notify").Str("transport", "sse").Str("url", t.URL).Msg("push channel connected")

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var name string
	var data []string
	dispatch := func() {
		if len(data) == 0 {
			name = ""
			return
		}
		if name == "" {
			name = "message"
		}
		emit(Event{Name: name, Data: []byte(strings.Join(data, "\n")), ReceivedAt: time.Now()})
		name, data = "", nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			dispatch()
		case strings.HasPrefix(line, ":"):
		default:
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				name = value
			case "data":
				data = append(data, value)
			}
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "sse read")
	}
	return errors.New("sse stream ended")
}
