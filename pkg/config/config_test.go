package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())
}

func TestDefaults(t *testing.T) {
	isolate(t)
	v, err := New(nil)
	require.NoError(t, err)

	s, err := Load(v, "")
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:5001", s.ServerURL)
	require.Equal(t, "/chat", s.ChatPath)
	require.Equal(t, TransportWebsocket, s.PushTransport)
	require.Equal(t, "/ws", s.PushPath)
	require.Equal(t, 5*time.Second, s.PushReconnectDelay)
	require.Equal(t, time.Duration(0), s.RequestTimeout)
	require.Equal(t, 1500*time.Millisecond, s.GreetingDelay)
	require.True(t, s.Markdown)
	require.Equal(t, "info", s.Level)
	require.Equal(t, "127.0.0.1:5001", s.Devserver.Listen)
}

func TestConfigFileEnvAndFlags(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "remoni.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server-url: https://nurse.example.org
push-transport: sse
greeting-delay: 2s
log-level: debug
devserver:
  listen: 0.0.0.0:8080
`), 0o644))

	t.Setenv("REMONI_CHAT_PATH", "/api/chat")
	t.Setenv("REMONI_DEVSERVER_LISTEN", "127.0.0.1:9000")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"--request-timeout=30s"}))

	v, err := New(fs)
	require.NoError(t, err)
	s, err := Load(v, file)
	require.NoError(t, err)

	require.Equal(t, "https://nurse.example.org", s.ServerURL)
	require.Equal(t, "/api/chat", s.ChatPath)
	require.Equal(t, TransportSSE, s.PushTransport)
	require.Equal(t, "/events", s.PushPath)
	require.Equal(t, 2*time.Second, s.GreetingDelay)
	require.Equal(t, 30*time.Second, s.RequestTimeout)
	require.Equal(t, "debug", s.Level)
	require.Equal(t, "127.0.0.1:9000", s.Devserver.Listen)
}

func TestMissingExplicitConfigFails(t *testing.T) {
	isolate(t)
	v, err := New(nil)
	require.NoError(t, err)
	_, err = Load(v, filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestUnknownTransport(t *testing.T) {
	isolate(t)
	t.Setenv("REMONI_PUSH_TRANSPORT", "socketio")
	v, err := New(nil)
	require.NoError(t, err)
	_, err = Load(v, "")
	require.ErrorContains(t, err, "socketio")
}

func TestNoneTransport(t *testing.T) {
	isolate(t)
	t.Setenv("REMONI_PUSH_TRANSPORT", "none")
	v, err := New(nil)
	require.NoError(t, err)
	s, err := Load(v, "")
	require.NoError(t, err)
	require.Equal(t, TransportNone, s.PushTransport)
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".env", []byte("REMONI_SERVER_URL=http://pi.local:5001\n"), 0o644))
	t.Setenv("REMONI_SERVER_URL", "")
	require.NoError(t, os.Unsetenv("REMONI_SERVER_URL"))

	require.NoError(t, LoadDotEnv())
	t.Cleanup(func() { _ = os.Unsetenv("REMONI_SERVER_URL") })

	v, err := New(nil)
	require.NoError(t, err)
	s, err := Load(v, "")
	require.NoError(t, err)
	require.Equal(t, "http://pi.local:5001", s.ServerURL)

	require.NoError(t, LoadDotEnv("missing.env"))
}
