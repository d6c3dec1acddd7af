package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/remoni/pkg/api"
	"github.com/go-go-golems/remoni/pkg/render"
	"github.com/go-go-golems/remoni/pkg/widget"
	"github.com/rs/zerolog/log"
)

// Conversation is the read side of the widget the model shows in its chrome.
type Conversation interface {
	Pending() int
	LastAnswer() (string, bool)
}

type ModelOption func(*Model)

func WithStyles(s Styles) ModelOption {
	return func(m *Model) { m.styles = s }
}

// WithMarkdown toggles glamour rendering of bot answers.
func WithMarkdown(enabled bool) ModelOption {
	return func(m *Model) { m.markdown = enabled }
}

func WithImageResolver(f func(string) string) ModelOption {
	return func(m *Model) { m.resolveImage = f }
}

func WithClipboard(write func(string) error) ModelOption {
	return func(m *Model) { m.copyText = write }
}

func WithTitle(title string) ModelOption {
	return func(m *Model) { m.title = title }
}

const (
	headerHeight = 1
	footerHeight = 1
)

type Model struct {
	bridge *Bridge
	conv   Conversation

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	styles   Styles

	title        string
	markdown     bool
	md           render.Markdown
	resolveImage func(string) string
	copyText     func(string) error

	state     bridgeState
	clearSeen int
	flash     string
	width     int
	height    int
}

func NewModel(bridge *Bridge, conv Conversation, opts ...ModelOption) Model {
	ti := textinput.New()
	ti.Placeholder = "Type your message..."
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		bridge:   bridge,
		conv:     conv,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		styles:   DefaultStyles(),
		title:    "REMONI",
		markdown: true,
		copyText: clipboard.WriteAll,
	}
	for _, o := range opts {
		o(&m)
	}
	m.resize(80, 24)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case refreshMsg:
		m.pull()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			m.flash = ""
			m.bridge.setInput(m.input.Value())
			m.bridge.pressKey(widget.KeyEnter)
			m.pull()
			return m, nil
		case "ctrl+s":
			m.flash = ""
			m.bridge.setInput(m.input.Value())
			m.bridge.clickSend()
			m.pull()
			return m, nil
		case "ctrl+y":
			m.copyLastAnswer()
			return m, nil
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// pull copies the bridge state into the model. Content is only re-laid out when
// the tree changed, and the viewport keeps following the bottom only if it was
// already there.
func (m *Model) pull() {
	s := m.bridge.snapshot()
	if s.clearSeq != m.clearSeen {
		m.clearSeen = s.clearSeq
		m.input.Reset()
	}
	treeChanged := s.tree.Version != m.state.tree.Version
	m.state = s
	if treeChanged {
		m.layout()
	}
}

func (m *Model) layout() {
	content := render.Terminal(m.state.tree, render.TerminalOptions{
		Width:        m.viewport.Width,
		Styles:       m.styles.Messages,
		Markdown:     m.md,
		ResolveImage: m.resolveImage,
	})
	render.Follow(viewportScroller{&m.viewport}, func() {
		m.viewport.SetContent(content)
	})
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	inputHeight := lipgloss.Height(m.styles.Input.Render(""))
	h := height - headerHeight - footerHeight - inputHeight
	if h < 1 {
		h = 1
	}
	m.viewport.Width = width
	m.viewport.Height = h
	m.input.Width = width - m.styles.Input.GetHorizontalFrameSize() - len(m.input.Prompt) - 1

	if m.markdown {
		md, err := render.NewMarkdown(width)
		if err != nil {
			log.Warn().Err(err).Msg("markdown disabled")
			md = nil
		}
		m.md = md
	}
	m.layout()
}

func (m *Model) copyLastAnswer() {
	if m.conv == nil {
		return
	}
	answer, ok := m.conv.LastAnswer()
	if !ok {
		m.flash = "nothing to copy"
		return
	}
	if err := m.copyText(answer); err != nil {
		log.Warn().Err(err).Msg("copy to clipboard")
		m.flash = "copy failed"
		return
	}
	m.flash = "copied"
}

func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		m.viewport.View(),
		m.styles.Input.Render(m.input.View()),
		m.footerView(),
	)
}

func (m Model) headerView() string {
	title := m.styles.TitleInactive.Render(m.title)
	if m.state.active {
		title = m.styles.Title.Render("● " + m.title)
	}
	parts := []string{title}
	if s := statusLine(m.state.piStatus, m.state.vitals); s != "" {
		style := m.styles.Status
		if m.state.piStatus != nil && !m.state.piStatus.Connected {
			style = m.styles.Alert
		}
		parts = append(parts, style.Render(s))
	}
	if m.conv != nil && m.conv.Pending() > 0 {
		parts = append(parts, m.spinner.View())
	}
	return strings.Join(parts, "  ")
}

func (m Model) footerView() string {
	help := m.styles.Help.Render("enter send · ctrl+y copy answer · pgup/pgdown scroll · esc quit")
	if m.flash != "" {
		return help + "  " + m.styles.Flash.Render(m.flash)
	}
	return help
}

func statusLine(pi *api.PiStatus, v *api.Vitals) string {
	var parts []string
	if pi != nil {
		if pi.Connected {
			parts = append(parts, "pi: connected")
		} else {
			parts = append(parts, "pi: offline")
		}
	}
	if v != nil {
		parts = append(parts, fmt.Sprintf("HR %g · SpO2 %g%% · BP %g/%g · %g°C",
			v.HeartRate, v.SpO2, v.BloodPressure.Systolic, v.BloodPressure.Diastolic, v.SkinTemperature))
	}
	return strings.Join(parts, " | ")
}

type viewportScroller struct {
	vp *viewport.Model
}

func (s viewportScroller) ScrollTop() int       { return s.vp.YOffset }
func (s viewportScroller) ScrollHeight() int    { return s.vp.TotalLineCount() }
func (s viewportScroller) ClientHeight() int    { return s.vp.Height }
func (s viewportScroller) SetScrollTop(top int) { s.vp.SetYOffset(top) }
