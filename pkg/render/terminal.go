package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/remoni/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Styles struct {
	Bot   lipgloss.Style
	User  lipgloss.Style
	Image lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Bot: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")).
			Padding(0, 1),
		User: lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("63")).
			Padding(0, 1),
		Image: lipgloss.NewStyle().
			Foreground(lipgloss.Color("213")).
			Italic(true).
			Padding(0, 1),
	}
}

// Markdown renders bot text. *glamour.TermRenderer satisfies it.
type Markdown interface {
	Render(in string) (string, error)
}

func NewMarkdown(width int) (Markdown, error) {
	opts := []glamour.TermRendererOption{glamour.WithStandardStyle("dark")}
	if width > 4 {
		opts = append(opts, glamour.WithWordWrap(width-4))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create markdown renderer")
	}
	return r, nil
}

type TerminalOptions struct {
	Width        int
	Styles       Styles
	Markdown     Markdown
	ResolveImage func(ref string) string
}

// Terminal lays the tree out column-reverse: the first (newest) node ends up on
// the bottom line, so the transcript reads top-down in chronological order.
func Terminal(tree Tree, opts TerminalOptions) string {
	blocks := make([]string, 0, len(tree.Nodes))
	for i := len(tree.Nodes) - 1; i >= 0; i-- {
		blocks = append(blocks, terminalNode(tree.Nodes[i], opts))
	}
	return strings.Join(blocks, "\n")
}

func terminalNode(n Node, opts TerminalOptions) string {
	maxWidth := 0
	if opts.Width > 0 {
		maxWidth = opts.Width * 4 / 5
	}

	if n.Kind == NodeImage {
		ref := n.Content
		if opts.ResolveImage != nil {
			ref = opts.ResolveImage(ref)
		}
		return opts.Styles.Image.Render("[image] " + ref)
	}

	if n.Sender == conversation.SenderUser {
		block := bubble(opts.Styles.User, n.Content, maxWidth)
		if opts.Width > 0 {
			return lipgloss.PlaceHorizontal(opts.Width, lipgloss.Right, block)
		}
		return block
	}

	if opts.Markdown != nil {
		out, err := opts.Markdown.Render(n.Content)
		if err == nil {
			return strings.Trim(out, "\n")
		}
		log.Debug().Err(err).Str("component", "render").Msg("markdown render failed, using plain text")
	}
	return bubble(opts.Styles.Bot, n.Content, maxWidth)
}

func bubble(style lipgloss.Style, text string, maxWidth int) string {
	if maxWidth > 0 && lipgloss.Width(text) > maxWidth {
		style = style.Width(maxWidth)
	}
	return style.Render(text)
}
