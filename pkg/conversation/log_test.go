package conversation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogAppendKeepsInsertionOrder(t *testing.T) {
	l := NewLog()
	require.Equal(t, 1, l.Append(User("hi")))
	require.Equal(t, 3, l.Append(Bot("hello"), BotImage("/p.png")))

	require.Equal(t, []Entry{
		{Sender: SenderUser, Content: "hi"},
		{Sender: SenderBot, Content: "hello"},
		{Sender: SenderBotImage, Content: "/p.png"},
	}, l.Snapshot())
}

func TestLogSnapshotIsACopy(t *testing.T) {
	l := NewLog()
	l.Append(User("a"))
	snap := l.Snapshot()
	snap[0].Content = "mutated"
	require.Equal(t, "a", l.Snapshot()[0].Content)
}

func TestLogLast(t *testing.T) {
	l := NewLog()
	_, ok := l.Last(nil)
	require.False(t, ok)

	l.Append(Bot("first"), User("q"), BotImage("/img"), Bot("second"), User("q2"))
	e, ok := l.Last(func(e Entry) bool { return e.Sender == SenderBot })
	require.True(t, ok)
	require.Equal(t, "second", e.Content)
}

func TestLogConcurrentAppends(t *testing.T) {
	l := NewLog()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Append(Bot("x"))
		}()
	}
	wg.Wait()
	require.Equal(t, 50, l.Len())
}

func TestSenderStrings(t *testing.T) {
	require.Equal(t, "USER", SenderUser.String())
	require.Equal(t, "BOT", SenderBot.String())
	require.Equal(t, "BOT_IMAGE", SenderBotImage.String())
	require.True(t, SenderBotImage.IsBot())
	require.False(t, SenderUser.IsBot())
	require.True(t, BotImage("p.png").IsImage())
	require.False(t, Bot("hi").IsImage())
}
