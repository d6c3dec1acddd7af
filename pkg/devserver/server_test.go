package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-go-golems/remoni/pkg/api"
	"github.com/go-go-golems/remoni/pkg/client"
	"github.com/go-go-golems/remoni/pkg/notify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *State) {
	t.Helper()
	st := NewState("http://pi.local:5000")
	hub := NewAlertHub(zerolog.Nop())
	t.Cleanup(func() { _ = hub.Close() })
	srv := httptest.NewServer(New(st, hub, WithLogger(zerolog.Nop())).Routes())
	t.Cleanup(srv.Close)
	return srv, st
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

type eventLog struct {
	mu     sync.Mutex
	events []notify.Event
}

func (l *eventLog) HandleEvent(_ context.Context, ev notify.Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, ev := range l.events {
		out = append(out, ev.Name)
	}
	return out
}

func (l *eventLog) last() notify.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

func TestChatThroughClient(t *testing.T) {
	srv, st := newTestServer(t)
	st.AddSensors(map[string]float64{"heart_rate": 75})

	c, err := client.New(srv.URL)
	require.NoError(t, err)

	reply, err := c.Chat(context.Background(), "show my heart rate trend")
	require.NoError(t, err)
	require.Equal(t, "Plot for heart_rate", reply.Answer)
	require.Len(t, reply.Images, 1)
	require.Equal(t, client.ImageFromPlots, reply.Images[0].Source)
}

func TestChatRejectsInvalidBody(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/chat", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusEndpointsThroughClient(t *testing.T) {
	srv, _ := newTestServer(t)
	c, err := client.New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/api/pi_status", api.PiStatus{Connected: true}).StatusCode)
	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/api/vitals", api.Vitals{HeartRate: 64, SpO2: 97}).StatusCode)
	require.Equal(t, http.StatusCreated, postJSON(t, srv.URL+"/api/fall_alerts", api.Alert{Message: "Fall detected"}).StatusCode)
	require.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/api/fall_alerts", api.Alert{}).StatusCode)

	status, err := c.PiStatus(ctx)
	require.NoError(t, err)
	require.True(t, status.Connected)
	require.Equal(t, "http://pi.local:5000", status.URL)

	vitals, err := c.LatestVitals(ctx)
	require.NoError(t, err)
	require.Equal(t, 64.0, vitals.HeartRate)
	require.NotEmpty(t, vitals.DateTime)

	alerts, err := c.RecentAlerts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, alerts.Total)
	require.Equal(t, "Fall detected", alerts.Alerts[0].Message)
	require.NotEmpty(t, alerts.Alerts[0].ID)
}

func TestSensorData(t *testing.T) {
	srv, st := newTestServer(t)
	resp := postJSON(t, srv.URL+"/sensor_data", map[string]any{"sensors": map[string]float64{"steps": 42}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	v, ok := st.LatestSensor("steps", 0)
	require.True(t, ok)
	require.Equal(t, 42.0, v)
}

func runSubscription(t *testing.T, tr notify.Transport) *eventLog {
	t.Helper()
	events := &eventLog{}
	sub, err := notify.NewSubscription(tr, events, notify.WithReconnectDelay(0))
	require.NoError(t, err)
	require.NoError(t, sub.Open(context.Background()))
	t.Cleanup(func() { _ = sub.Close() })

	// the server greets every subscriber with the current pi status
	require.Eventually(t, func() bool { return len(events.names()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, api.EventPiStatus, events.names()[0])
	return events
}

func TestWebsocketPushesAlerts(t *testing.T) {
	srv, _ := newTestServer(t)
	wsURL, err := notify.WebsocketURL(srv.URL, "/ws")
	require.NoError(t, err)
	events := runSubscription(t, &notify.WebsocketTransport{URL: wsURL})

	postJSON(t, srv.URL+"/api/fall_alerts", api.Alert{Message: "Fall detected in the kitchen"})
	postJSON(t, srv.URL+"/api/vitals", api.Vitals{HeartRate: 88})

	require.Eventually(t, func() bool { return len(events.names()) == 3 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{api.EventPiStatus, api.EventFallAlert, api.EventVitalsUpdate}, events.names())

	var v api.Vitals
	require.NoError(t, events.last().Decode(&v))
	require.Equal(t, 88.0, v.HeartRate)
}

func TestSSEPushesAlerts(t *testing.T) {
	srv, _ := newTestServer(t)
	events := runSubscription(t, &notify.SSETransport{URL: srv.URL + "/events"})

	postJSON(t, srv.URL+"/api/fall_alerts", api.Alert{Message: "Fall detected"})

	require.Eventually(t, func() bool { return len(events.names()) == 2 }, 2*time.Second, 10*time.Millisecond)
	var a api.Alert
	require.NoError(t, events.last().Decode(&a))
	require.Equal(t, "Fall detected", a.Message)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	st := NewState("")
	hub := NewAlertHub(zerolog.Nop())
	defer func() { _ = hub.Close() }()
	s := New(st, hub, WithLogger(zerolog.Nop()))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
