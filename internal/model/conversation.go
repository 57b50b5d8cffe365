package model

// Conversation is an ordered message history plus the session's system
// prompt. Messages are append-only except for in-place rating updates.
// A Conversation is owned by exactly one session and is never shared.
type Conversation struct {
	System   string    `json:"system"`
	Messages []Message `json:"messages"`
}

// NewConversation creates an empty conversation with the given system prompt.
func NewConversation(system string) *Conversation {
	return &Conversation{System: system}
}

// Append adds a message to the end of the history.
func (c *Conversation) Append(m Message) {
	c.Messages = append(c.Messages, m)
}

// Last returns the most recent message, if any.
func (c *Conversation) Last() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Rate sets the rating on the first message whose uuid matches. A miss is a
// silent no-op so a stale uuid from the client never faults the session.
func (c *Conversation) Rate(uuid string, rating int) bool {
	for i := range c.Messages {
		if c.Messages[i].UUID == uuid {
			c.Messages[i].Rating = &rating
			return true
		}
	}
	return false
}
