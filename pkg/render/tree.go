package render

import "github.com/go-go-golems/remoni/pkg/conversation"

type NodeKind int

const (
	NodeText NodeKind = iota
	NodeImage
)

func (k NodeKind) String() string {
	if k == NodeImage {
		return "image"
	}
	return "text"
}

// Class names follow the chatbox stylesheet the widget was designed against.
const (
	ClassBot   = "messages__item messages__item--visitor"
	ClassUser  = "messages__item messages__item--operator"
	ClassImage = "messages__item messages__item--image--operator"
)

type Node struct {
	Kind    NodeKind
	Sender  conversation.Sender
	Content string
	Class   string
}

// Tree is the full view of a log at one version. Nodes are newest first.
type Tree struct {
	Version int
	Nodes   []Node
}

func (t Tree) Len() int { return len(t.Nodes) }

// Build reverses entries (oldest first in, newest first out) into a Tree.
func Build(entries []conversation.Entry) Tree {
	nodes := make([]Node, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		nodes = append(nodes, nodeFor(entries[i]))
	}
	return Tree{Version: len(entries), Nodes: nodes}
}

func nodeFor(e conversation.Entry) Node {
	if e.IsImage() {
		return Node{Kind: NodeImage, Sender: e.Sender, Content: e.Content, Class: ClassImage}
	}
	switch e.Sender {
	case conversation.SenderBot:
		return Node{Kind: NodeText, Sender: e.Sender, Content: e.Content, Class: ClassBot}
	default:
		return Node{Kind: NodeText, Sender: e.Sender, Content: e.Content, Class: ClassUser}
	}
}
