package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/go-go-golems/remoni/pkg/conversation"
	"github.com/go-go-golems/remoni/pkg/render"
	"github.com/go-go-golems/remoni/pkg/widget"
	"github.com/stretchr/testify/require"
)

func TestLineViewPrintsOnlyNewMessagesOldestFirst(t *testing.T) {
	var out bytes.Buffer
	v := NewLineView(&out, func(ref string) string { return "http://pi/" + ref })

	entries := []conversation.Entry{conversation.Bot("Hello!")}
	v.Render(render.Build(entries))
	entries = append(entries, conversation.User("hr?"), conversation.Bot("72"), conversation.BotImage("plot.png"))
	v.Render(render.Build(entries))
	v.Render(render.Build(entries))

	require.Equal(t, strings.Join([]string{
		"REMONI: Hello!",
		"You: hr?",
		"REMONI: 72",
		"REMONI: [image] http://pi/plot.png",
	}, "\n")+"\n", out.String())
}

func TestLineViewRunSubmitsEachLine(t *testing.T) {
	v := NewLineView(&bytes.Buffer{}, nil)
	var got []string
	v.OnKey(func(k widget.Key) {
		require.Equal(t, widget.KeyEnter, k)
		got = append(got, v.InputValue())
		v.ClearInput()
	})

	err := v.Run(context.Background(), strings.NewReader("one\ntwo\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two"}, got)
	require.Equal(t, "", v.InputValue())
}
