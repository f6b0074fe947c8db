package core

import "time"

// Role identifies who authored a Message.
type Role string

const (
	// RoleUser marks messages typed by the human.
	RoleUser Role = "user"
	// RoleAgent marks messages produced by an agent.
	RoleAgent Role = "agent"
)

// Message is a single conversational entry. Once appended to a session it is
// never modified.
type Message struct {
	Role      Role      `json:"role"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// UserAuthor is the author recorded on user messages.
const UserAuthor = "user"

// NewUserMessage creates a user-authored message.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Author: UserAuthor, Text: text, Timestamp: time.Now().UTC()}
}

// NewAgentMessage creates a message authored by the named agent.
func NewAgentMessage(author, text string) Message {
	return Message{Role: RoleAgent, Author: author, Text: text, Timestamp: time.Now().UTC()}
}
