package conversation

// Sender tags who produced an entry.
type Sender int

const (
	SenderUser Sender = iota
	SenderBot
	// SenderBotImage marks an entry whose content is an image reference.
	SenderBotImage
)

func (s Sender) String() string {
	switch s {
	case SenderUser:
		return "USER"
	case SenderBot:
		return "BOT"
	case SenderBotImage:
		return "BOT_IMAGE"
	default:
		return "UNKNOWN"
	}
}

// IsBot reports whether the entry came from the assistant side (text or image).
func (s Sender) IsBot() bool {
	return s == SenderBot || s == SenderBotImage
}

// Entry is one unit of conversation history. Entries are values and are never
// modified after they have been appended to a Log.
type Entry struct {
	Sender  Sender
	Content string
}

func User(content string) Entry { return Entry{Sender: SenderUser, Content: content} }
func Bot(content string) Entry  { return Entry{Sender: SenderBot, Content: content} }
func BotImage(ref string) Entry { return Entry{Sender: SenderBotImage, Content: ref} }
func (e Entry) IsImage() bool   { return e.Sender == SenderBotImage }
