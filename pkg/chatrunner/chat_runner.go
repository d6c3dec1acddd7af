package chatrunner

import (
	"context"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/remoni/pkg/client"
	"github.com/go-go-golems/remoni/pkg/config"
	"github.com/go-go-golems/remoni/pkg/notify"
	"github.com/go-go-golems/remoni/pkg/ui"
	"github.com/go-go-golems/remoni/pkg/widget"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Mode selects the surface the chat runs on.
type Mode int

const (
	// ModeAuto picks the TUI when stdout is a terminal and line mode otherwise.
	ModeAuto Mode = iota
	ModeTUI
	ModeLines
)

// ChatSession wires a widget to the backend client, the push transport and a view.
type ChatSession struct {
	settings       *config.Settings
	mode           Mode
	in             io.Reader
	out            io.Writer
	programOptions []tea.ProgramOption
	chatClient     widget.ChatClient
	transport      notify.Transport
	transportSet   bool
}

type Option func(*ChatSession)

func WithMode(m Mode) Option {
	return func(cs *ChatSession) { cs.mode = m }
}

func WithInput(r io.Reader) Option {
	return func(cs *ChatSession) { cs.in = r }
}

func WithOutput(w io.Writer) Option {
	return func(cs *ChatSession) { cs.out = w }
}

func WithProgramOptions(opts ...tea.ProgramOption) Option {
	return func(cs *ChatSession) { cs.programOptions = opts }
}

// WithChatClient replaces the HTTP client built from the settings.
func WithChatClient(c widget.ChatClient) Option {
	return func(cs *ChatSession) { cs.chatClient = c }
}

// WithTransport replaces the push transport built from the settings. Nil disables push.
func WithTransport(t notify.Transport) Option {
	return func(cs *ChatSession) {
		cs.transport = t
		cs.transportSet = true
	}
}

func NewChatSession(settings *config.Settings, opts ...Option) *ChatSession {
	cs := &ChatSession{
		settings:       settings,
		in:             os.Stdin,
		out:            os.Stdout,
		programOptions: []tea.ProgramOption{tea.WithAltScreen()},
	}
	for _, o := range opts {
		o(cs)
	}
	return cs
}

// BuildTransport maps the push settings onto a notify transport. It returns nil
// when push is disabled.
func BuildTransport(s *config.Settings) (notify.Transport, error) {
	switch s.PushTransport {
	case config.TransportWebsocket:
		u, err := notify.WebsocketURL(s.ServerURL, s.PushPath)
		if err != nil {
			return nil, err
		}
		return &notify.WebsocketTransport{URL: u}, nil
	case config.TransportSSE:
		u := strings.TrimSuffix(s.ServerURL, "/") + "/" + strings.TrimPrefix(s.PushPath, "/")
		return &notify.SSETransport{URL: u}, nil
	case config.TransportNone, "":
		return nil, nil
	default:
		return nil, errors.Errorf("unknown push transport %q", s.PushTransport)
	}
}

func (cs *ChatSession) interactive() bool {
	switch cs.mode {
	case ModeTUI:
		return true
	case ModeLines:
		return false
	}
	f, ok := cs.out.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func (cs *ChatSession) Run(ctx context.Context) error {
	resolve := func(ref string) string { return ref }
	if cs.chatClient == nil {
		c, err := client.New(cs.settings.ServerURL,
			client.WithChatPath(cs.settings.ChatPath),
			client.WithTimeout(cs.settings.RequestTimeout),
		)
		if err != nil {
			return errors.Wrap(err, "create backend client")
		}
		log.Debug().Str("component", "chatrunner").Str("server_url", c.BaseURL()).Msg("backend client ready")
		cs.chatClient = c
		resolve = c.ResolveImage
	} else if c, ok := cs.chatClient.(*client.Client); ok {
		resolve = c.ResolveImage
	}

	if !cs.transportSet {
		t, err := BuildTransport(cs.settings)
		if err != nil {
			return errors.Wrap(err, "create push transport")
		}
		cs.transport = t
	}

	if cs.interactive() {
		return cs.runTUI(ctx, resolve)
	}
	return cs.runLines(ctx, resolve)
}

func (cs *ChatSession) widgetOptions(view widget.View) widget.Options {
	return widget.Options{
		View:           view,
		Client:         cs.chatClient,
		Transport:      cs.transport,
		ReconnectDelay: cs.settings.PushReconnectDelay,
		GreetingDelay:  cs.settings.GreetingDelay,
	}
}

func (cs *ChatSession) runTUI(ctx context.Context, resolve func(string) string) error {
	bridge := ui.NewBridge()
	opts := cs.widgetOptions(bridge)
	opts.OnVitals = bridge.SetVitals
	opts.OnPiStatus = bridge.SetPiStatus
	w, err := widget.New(opts)
	if err != nil {
		return err
	}

	model := ui.NewModel(bridge, w,
		ui.WithMarkdown(cs.settings.Markdown),
		ui.WithImageResolver(resolve),
	)
	programOptions := append([]tea.ProgramOption{tea.WithInput(cs.in), tea.WithOutput(cs.out)}, cs.programOptions...)
	p := tea.NewProgram(model, programOptions...)
	bridge.Attach(p)

	eg, childCtx := errgroup.WithContext(ctx)
	childCtx, cancel := context.WithCancel(childCtx)

	eg.Go(func() error {
		<-childCtx.Done()
		p.Quit()
		return nil
	})

	eg.Go(func() error {
		defer cancel()
		if err := w.Start(childCtx); err != nil {
			return err
		}
		// in-flight requests are abandoned on quit
		defer func() {
			cancel()
			_ = w.Close()
		}()

		log.Debug().Str("component", "chatrunner").Msg("starting Bubble Tea program")
		_, runErr := p.Run()
		log.Debug().Err(runErr).Str("component", "chatrunner").Msg("Bubble Tea program finished")
		if errors.Is(runErr, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return runErr
	})

	return eg.Wait()
}

// runLines drives the widget from input lines until EOF, then waits for the
// outstanding answers and the rest of the greeting.
func (cs *ChatSession) runLines(ctx context.Context, resolve func(string) string) error {
	view := ui.NewLineView(cs.out, resolve)
	w, err := widget.New(cs.widgetOptions(view))
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	err = view.Run(ctx, cs.in)
	w.Wait()
	if err == nil {
		err = w.WaitGreeting(ctx)
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
