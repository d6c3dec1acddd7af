package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-go-golems/remoni/pkg/api"
	"github.com/stretchr/testify/require"
)

func TestChatSendsJSONMessage(t *testing.T) {
	var gotMethod, gotPath, gotContentType, gotOrigin string
	var gotBody api.ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotOrigin = r.Header.Get("Origin")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"A","plots":["p1","p2"]}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	reply, err := c.Chat(context.Background(), "how is my heart rate?")
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "/chat", gotPath)
	require.Equal(t, "application/json", gotContentType)
	require.Equal(t, srv.URL, gotOrigin)
	require.Equal(t, "how is my heart rate?", gotBody.Message)
	require.Equal(t, "A", reply.Answer)
	require.Len(t, reply.Images, 2)
}

func TestChatCustomPathAndBasePath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"answer":"ok"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/doctor/", WithChatPath("chat"))
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, "/doctor/chat", gotPath)
}

func TestChatFailures(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		target error
	}{
		"server error":  {status: http.StatusInternalServerError, body: `{"answer":"nope"}`, target: ErrStatus},
		"html body":     {status: http.StatusOK, body: `<html>oops</html>`, target: ErrMalformedReply},
		"missing field": {status: http.StatusOK, body: `{"status":"ok"}`, target: ErrMalformedReply},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c, err := New(srv.URL)
			require.NoError(t, err)
			_, err = c.Chat(context.Background(), "hi")
			require.ErrorIs(t, err, tc.target)
		})
	}
}

func TestChatConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url)
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), "hi")
	require.Error(t, err)
}

func TestChatTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(srv.URL, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), "hi")
	require.Error(t, err)
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New("ftp://example.com")
	require.Error(t, err)
	_, err = New("http://example.com", WithChatPath("  "))
	require.Error(t, err)
	_, err = New("http://example.com", WithTimeout(-time.Second))
	require.Error(t, err)
	_, err = New("http://example.com", WithHTTPClient(nil))
	require.Error(t, err)
}

func TestBaseURLTrimsTrailingSlash(t *testing.T) {
	c, err := New(" http://pi.local:5001/remoni/ ")
	require.NoError(t, err)
	require.Equal(t, "http://pi.local:5001/remoni", c.BaseURL())
}

func TestResolveImage(t *testing.T) {
	c, err := New("http://127.0.0.1:5001")
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:5001/static/local_data/show_data/p.png", c.ResolveImage("/static/local_data/show_data/p.png"))
	require.Equal(t, "https://cdn.example.com/x.png", c.ResolveImage("https://cdn.example.com/x.png"))
}

func TestStatusEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/pi_status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"connected":true,"url":"http://pi:5000"}`))
	})
	mux.HandleFunc("/api/latest_vitals_from_pi", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"heart_rate":72,"spo2":98,"blood_pressure":{"systolic":120,"diastolic":80},"patient_id":"00001"}`))
	})
	mux.HandleFunc("/api/fall_alerts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total":12,"alerts":[{"message":"Fall detected"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	st, err := c.PiStatus(ctx)
	require.NoError(t, err)
	require.True(t, st.Connected)

	v, err := c.LatestVitals(ctx)
	require.NoError(t, err)
	require.Equal(t, 72.0, v.HeartRate)
	require.Equal(t, 120.0, v.BloodPressure.Systolic)
	require.Equal(t, "00001", v.PatientID)

	alerts, err := c.RecentAlerts(ctx)
	require.NoError(t, err)
	require.Equal(t, 12, alerts.Total)
	require.Equal(t, "Fall detected", alerts.Alerts[0].Message)
}
