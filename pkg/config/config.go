// Package config loads remoni settings from flags, REMONI_* environment
// variables, an optional config.yaml and a .env file.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-go-golems/remoni/pkg/logging"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "REMONI"

const (
	TransportWebsocket = "websocket"
	TransportSSE       = "sse"
	TransportNone      = "none"
)

type Devserver struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

type Settings struct {
	ServerURL          string        `mapstructure:"server-url" yaml:"server-url"`
	ChatPath           string        `mapstructure:"chat-path" yaml:"chat-path"`
	PushTransport      string        `mapstructure:"push-transport" yaml:"push-transport"`
	PushPath           string        `mapstructure:"push-path" yaml:"push-path"`
	PushReconnectDelay time.Duration `mapstructure:"push-reconnect-delay" yaml:"push-reconnect-delay"`
	RequestTimeout     time.Duration `mapstructure:"request-timeout" yaml:"request-timeout"`
	GreetingDelay      time.Duration `mapstructure:"greeting-delay" yaml:"greeting-delay"`
	Markdown           bool          `mapstructure:"markdown" yaml:"markdown"`

	logging.Settings `mapstructure:",squash" yaml:",inline"`

	Devserver Devserver `mapstructure:"devserver" yaml:"devserver"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("server-url", "http://127.0.0.1:5001")
	v.SetDefault("chat-path", "/chat")
	v.SetDefault("push-transport", TransportWebsocket)
	v.SetDefault("push-path", "")
	v.SetDefault("push-reconnect-delay", 5*time.Second)
	v.SetDefault("request-timeout", time.Duration(0))
	v.SetDefault("greeting-delay", 1500*time.Millisecond)
	v.SetDefault("markdown", true)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-file", "")
	v.SetDefault("with-caller", false)
	v.SetDefault("devserver.listen", "127.0.0.1:5001")
}

// AddFlags registers the persistent flags shared by every command.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default $HOME/.remoni/config.yaml)")
	fs.String("server-url", "http://127.0.0.1:5001", "nurse backend base URL")
	fs.String("chat-path", "/chat", "chat endpoint path")
	fs.String("push-transport", TransportWebsocket, "push channel: websocket, sse or none")
	fs.String("push-path", "", "push endpoint path (default /ws, or /events for sse)")
	fs.Duration("push-reconnect-delay", 5*time.Second, "delay before reconnecting a dropped push channel, 0 disables")
	fs.Duration("request-timeout", 0, "chat request timeout, 0 for none")
	fs.Duration("greeting-delay", 1500*time.Millisecond, "delay between greeting messages")
	fs.Bool("markdown", true, "render answers as markdown")
	fs.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	fs.String("log-file", "", "log file")
	fs.Bool("with-caller", false, "log caller file and line")
}

// New returns a viper instance with defaults, env binding and the flags in fs bound.
func New(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if fs != nil {
		var err error
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" || err != nil {
				return
			}
			err = v.BindPFlag(f.Name, f)
		})
		if err != nil {
			return nil, errors.Wrap(err, "bind flags")
		}
	}
	return v, nil
}

// LoadDotEnv loads .env files into the environment. Missing files are skipped
// and variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return errors.Wrapf(err, "load %s", p)
		}
	}
	return nil
}

// Load reads the config file into v and decodes the settings. An explicit
// configFile must exist; otherwise config.yaml is looked up in $HOME/.remoni and
// the working directory, and may be absent.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".remoni"))
		}
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := s.normalize(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) normalize() error {
	s.PushTransport = strings.ToLower(strings.TrimSpace(s.PushTransport))
	switch s.PushTransport {
	case TransportWebsocket:
		if s.PushPath == "" {
			s.PushPath = "/ws"
		}
	case TransportSSE:
		if s.PushPath == "" {
			s.PushPath = "/events"
		}
	case TransportNone, "":
		s.PushTransport = TransportNone
	default:
		return errors.Errorf("unknown push transport %q", s.PushTransport)
	}
	if strings.TrimSpace(s.ServerURL) == "" {
		return errors.New("server-url is required")
	}
	if s.PushReconnectDelay < 0 || s.RequestTimeout < 0 || s.GreetingDelay < 0 {
		return errors.New("durations must not be negative")
	}
	if s.ChatPath == "" {
		s.ChatPath = "/chat"
	}
	return nil
}
