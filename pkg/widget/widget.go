package widget

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-go-golems/remoni/pkg/api"
	"github.com/go-go-golems/remoni/pkg/conversation"
	"github.com/go-go-golems/remoni/pkg/notify"
	"github.com/go-go-golems/remoni/pkg/render"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultErrorText replaces the answer when a chat request fails.
	DefaultErrorText = "Sorry, the system is currently experiencing an error. Please try again later."
	// DefaultGreetingDelay separates consecutive greeting messages.
	DefaultGreetingDelay = 1500 * time.Millisecond
)

// DefaultGreeting is shown one message at a time when the widget starts.
var DefaultGreeting = []string{
	"Hello! My name is REMONI. I am your virtual nurse.",
	"How can I help you?",
}

// Options configures a Widget. View and Client are required.
type Options struct {
	View   View
	Client ChatClient

	// Transport is the push channel for alerts. Nil disables notifications.
	Transport      notify.Transport
	ReconnectDelay time.Duration

	Scheduler     Scheduler
	Greeting      []string
	GreetingDelay time.Duration
	ErrorText     string

	OnVitals   func(api.Vitals)
	OnPiStatus func(api.PiStatus)

	Logger *zerolog.Logger
}

// Widget owns one conversation log and keeps its View in sync with it.
type Widget struct {
	opts   Options
	log    *conversation.Log
	logger zerolog.Logger

	// mu serialises append+render so views see versions in order
	mu sync.Mutex

	ctx     context.Context
	started atomic.Bool
	pending atomic.Int64
	wg      sync.WaitGroup

	timersMu     sync.Mutex
	timers       []func() bool
	closed       bool
	greetDone    chan struct{}
	greetDoneOne sync.Once

	sub *notify.Subscription
}

// New validates opts and fills in the defaults. The widget does nothing until Start.
func New(opts Options) (*Widget, error) {
	if opts.View == nil {
		return nil, errors.New("widget view is nil")
	}
	if opts.Client == nil {
		return nil, errors.New("widget chat client is nil")
	}
	if opts.Scheduler == nil {
		opts.Scheduler = WallClock{}
	}
	if opts.Greeting == nil {
		opts.Greeting = DefaultGreeting
	}
	if opts.GreetingDelay <= 0 {
		opts.GreetingDelay = DefaultGreetingDelay
	}
	if opts.ErrorText == "" {
		opts.ErrorText = DefaultErrorText
	}

	logger := log.With().Str("component", "widget").Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Widget{
		opts:      opts,
		log:       conversation.NewLog(),
		logger:    logger,
		ctx:       context.Background(),
		greetDone: make(chan struct{}),
	}, nil
}

// Start binds the view, marks it active, plays the greeting and opens the push
// channel. It must be called once.
func (w *Widget) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("widget already started")
	}
	w.ctx = ctx

	w.opts.View.OnSend(w.submit)
	w.opts.View.OnKey(func(k Key) {
		if k == KeyEnter {
			w.submit()
		}
	})
	w.opts.View.SetActive(true)

	w.greet(0)

	if w.opts.Transport != nil {
		sub, err := notify.NewSubscription(
			w.opts.Transport,
			notify.HandlerFunc(w.handleEvent),
			notify.WithReconnectDelay(w.opts.ReconnectDelay),
			notify.WithLogger(w.logger.With().Str("channel", "push").Logger()),
		)
		if err != nil {
			return errors.Wrap(err, "create push subscription")
		}
		if err := sub.Open(ctx); err != nil {
			return errors.Wrap(err, "open push subscription")
		}
		w.sub = sub
	}
	w.logger.Debug().Bool("push", w.sub != nil).Msg("widget started")
	return nil
}

func (w *Widget) greet(i int) {
	if i >= len(w.opts.Greeting) {
		w.finishGreeting()
		return
	}
	w.append(conversation.Bot(w.opts.Greeting[i]))
	if i+1 >= len(w.opts.Greeting) {
		w.finishGreeting()
		return
	}

	w.timersMu.Lock()
	defer w.timersMu.Unlock()
	if w.closed {
		return
	}
	stop := w.opts.Scheduler.AfterFunc(w.opts.GreetingDelay, func() { w.greet(i + 1) })
	w.timers = append(w.timers, stop)
}

func (w *Widget) finishGreeting() {
	w.greetDoneOne.Do(func() { close(w.greetDone) })
}

// WaitGreeting blocks until the whole greeting has been shown, the widget is
// closed or ctx is done.
func (w *Widget) WaitGreeting(ctx context.Context) error {
	select {
	case <-w.greetDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Widget) submit() {
	w.Send(w.opts.View.InputValue())
}

// Send appends the user's message, clears the input and starts one chat request.
// Empty text is ignored. The request's entries are appended when it completes, in
// whatever order concurrent requests finish.
func (w *Widget) Send(text string) {
	if text == "" {
		return
	}
	w.append(conversation.User(text))
	w.opts.View.ClearInput()

	w.pending.Add(1)
	w.wg.Add(1)
	go w.exchange(text)
}

func (w *Widget) exchange(text string) {
	defer w.wg.Done()
	defer w.pending.Add(-1)

	reply, err := w.opts.Client.Chat(w.ctx, text)
	if err != nil {
		w.logger.Warn().Err(err).Msg("chat exchange failed")
		w.append(conversation.Bot(w.opts.ErrorText))
		w.opts.View.ClearInput()
		return
	}

	entries := reply.Entries()
	w.append(entries[0])
	w.opts.View.ClearInput()
	for _, e := range entries[1:] {
		w.append(e)
	}
}

func (w *Widget) handleEvent(_ context.Context, ev notify.Event) {
	switch ev.Name {
	case api.EventFallAlert:
		var alert struct {
			Message *string `json:"message"`
		}
		if err := ev.Decode(&alert); err != nil || alert.Message == nil {
			w.logger.Warn().Err(err).Str("event", ev.Name).Msg("dropping alert without message")
			return
		}
		w.append(conversation.Bot(*alert.Message))
	case api.EventVitalsUpdate:
		if w.opts.OnVitals == nil {
			return
		}
		var v api.Vitals
		if err := ev.Decode(&v); err != nil {
			w.logger.Debug().Err(err).Msg("dropping vitals update")
			return
		}
		w.opts.OnVitals(v)
	case api.EventPiStatus:
		if w.opts.OnPiStatus == nil {
			return
		}
		var st api.PiStatus
		if err := ev.Decode(&st); err != nil {
			w.logger.Debug().Err(err).Msg("dropping pi status")
			return
		}
		w.opts.OnPiStatus(st)
	default:
		w.logger.Debug().Str("event", ev.Name).Msg("ignoring push event")
	}
}

func (w *Widget) append(e conversation.Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.log.Append(e)
	w.opts.View.Render(render.Build(w.log.Snapshot()))
}

// Entries returns a copy of the conversation, oldest first.
func (w *Widget) Entries() []conversation.Entry { return w.log.Snapshot() }

// LastAnswer returns the most recent bot text entry.
func (w *Widget) LastAnswer() (string, bool) {
	e, ok := w.log.Last(func(e conversation.Entry) bool { return e.Sender == conversation.SenderBot })
	return e.Content, ok
}

// Pending is the number of chat requests still in flight.
func (w *Widget) Pending() int { return int(w.pending.Load()) }

// Wait blocks until every in-flight chat request has been applied.
func (w *Widget) Wait() { w.wg.Wait() }

// Close cancels the remaining greeting, closes the push channel and waits for
// in-flight requests.
func (w *Widget) Close() error {
	w.timersMu.Lock()
	w.closed = true
	for _, stop := range w.timers {
		stop()
	}
	w.timers = nil
	w.timersMu.Unlock()
	w.finishGreeting()

	var err error
	if w.sub != nil {
		err = w.sub.Close()
	}
	w.wg.Wait()
	return err
}
