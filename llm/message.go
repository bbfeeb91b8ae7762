package llm

// Role represents the role of a turn in a conversation.
type Role string

const (
	// RoleSystem carries system-level instructions or context.
	RoleSystem Role = "system"

	// RoleUser carries a message from the user (here, a probe prompt).
	RoleUser Role = "user"

	// RoleAssistant carries a response from the target model.
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string { return string(r) }

// IsValid checks if the role is one of the defined constants.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message is one unit of model output (or input text wrapped for scoring).
type Message struct {
	// Text is the message content.
	Text string `json:"text"`

	// Lang is an optional BCP-47 language tag for the text. Detectors with
	// a language filter only score messages whose tag matches.
	Lang string `json:"lang,omitempty"`
}

// NewMessage creates a message with the given text and no language tag.
func NewMessage(text string) *Message {
	return &Message{Text: text}
}

// Turn is one (role, message) step of a conversation.
type Turn struct {
	Role    Role     `json:"role"`
	Message *Message `json:"message"`
}

// Conversation is an ordered list of turns sent to a generator.
type Conversation struct {
	Turns []Turn `json:"turns"`
}

// NewConversation builds a single-turn conversation holding one user prompt.
func NewConversation(prompt string) Conversation {
	return Conversation{Turns: []Turn{{Role: RoleUser, Message: NewMessage(prompt)}}}
}

// WithSystem prepends a system turn to the conversation.
func (c Conversation) WithSystem(text string) Conversation {
	turns := make([]Turn, 0, len(c.Turns)+1)
	turns = append(turns, Turn{Role: RoleSystem, Message: NewMessage(text)})
	turns = append(turns, c.Turns...)
	return Conversation{Turns: turns}
}

// LastUserText returns the text of the most recent user turn, or "" when the
// conversation holds none. Single-turn connectors collapse a conversation to
// this value.
func (c Conversation) LastUserText() string {
	for i := len(c.Turns) - 1; i >= 0; i-- {
		if c.Turns[i].Role == RoleUser && c.Turns[i].Message != nil {
			return c.Turns[i].Message.Text
		}
	}
	return ""
}

// SystemText returns the concatenated text of all system turns.
func (c Conversation) SystemText() string {
	var out string
	for _, t := range c.Turns {
		if t.Role == RoleSystem && t.Message != nil {
			if out != "" {
				out += "\n"
			}
			out += t.Message.Text
		}
	}
	return out
}

// NonSystemTurns returns the turns that are not system turns, preserving
// order. Providers that take the system prompt out-of-band use this.
func (c Conversation) NonSystemTurns() []Turn {
	out := make([]Turn, 0, len(c.Turns))
	for _, t := range c.Turns {
		if t.Role != RoleSystem {
			out = append(out, t)
		}
	}
	return out
}
