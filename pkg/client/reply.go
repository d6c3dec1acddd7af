package client

import (
	"encoding/json"

	"github.com/go-go-golems/remoni/pkg/api"
	"github.com/go-go-golems/remoni/pkg/conversation"
	"github.com/pkg/errors"
)

// ErrMalformedReply is returned when the chat endpoint answers with something that
// is not a chat reply.
var ErrMalformedReply = errors.New("malformed chat reply")

type ImageSource int

const (
	ImageFromPlots ImageSource = iota
	// ImageFromShowList is the legacy field name kept by older backends.
	ImageFromShowList
)

func (s ImageSource) String() string {
	if s == ImageFromShowList {
		return "show_list"
	}
	return "plots"
}

type Image struct {
	Source ImageSource
	Ref    string
}

// Reply is a decoded chat response. Images holds plots first, then legacy
// show_list items, each in server order.
type Reply struct {
	Answer string
	Images []Image
}

func ParseReply(data []byte) (*Reply, error) {
	var raw api.ChatResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(ErrMalformedReply, err.Error())
	}
	if raw.Answer == nil {
		return nil, errors.Wrap(ErrMalformedReply, "missing answer")
	}

	r := &Reply{Answer: *raw.Answer}
	for _, p := range raw.Plots {
		r.Images = append(r.Images, Image{Source: ImageFromPlots, Ref: p})
	}
	for _, p := range raw.ShowList {
		r.Images = append(r.Images, Image{Source: ImageFromShowList, Ref: p})
	}
	return r, nil
}

// Entries returns the log entries for this reply: the answer, then one image
// entry per image.
func (r *Reply) Entries() []conversation.Entry {
	if r == nil {
		return nil
	}
	out := make([]conversation.Entry, 0, 1+len(r.Images))
	out = append(out, conversation.Bot(r.Answer))
	for _, img := range r.Images {
		out = append(out, conversation.BotImage(img.Ref))
	}
	return out
}
