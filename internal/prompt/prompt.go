// Package prompt renders a role-tagged conversation into the single prompt
// string handed to the inference backend.
//
// Rendering happens in two passes over the messages. System messages come
// first, one per line, then the optional instruction header, then user and
// assistant turns in their original order, then the optional footer that
// opens the model's reply.
package prompt

import (
	"fmt"
	"strings"
)

// Role tags the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

const (
	// Header is inserted after all system content and before the first turn.
	// Trailing spaces and indentation are part of the template.
	Header = "### Instruction: \n" +
		"            The prompt below is a question to answer, a task to complete, or a conversation \n" +
		"            to respond to; decide which and write an appropriate response.\n" +
		"            \n### Prompt: "

	// ResponseMarker prefixes every assistant turn.
	ResponseMarker = "### Response: "

	// Footer closes the prompt so the model continues with its answer.
	Footer = "\n### Response:"
)

// Build renders messages. Messages with an unknown role contribute nothing;
// use Validate at input boundaries to reject them instead.
func Build(messages []Message, includeHeader, includeFooter bool) string {
	var b strings.Builder

	for _, m := range messages {
		if m.Role == RoleSystem {
			b.WriteString(m.Content)
			b.WriteByte('\n')
		}
	}

	if includeHeader {
		b.WriteString(Header)
	}

	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			b.WriteByte('\n')
			b.WriteString(m.Content)
		case RoleAssistant:
			b.WriteByte('\n')
			b.WriteString(ResponseMarker)
			b.WriteString(m.Content)
		}
	}

	if includeFooter {
		b.WriteString(Footer)
	}
	return b.String()
}

// UnknownRoleError reports a message whose role is not system, user or assistant.
type UnknownRoleError struct {
	Index int
	Role  Role
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("message %d: unknown role %q", e.Index, string(e.Role))
}

// Validate returns an *UnknownRoleError for the first message with an unknown role.
func Validate(messages []Message) error {
	for i, m := range messages {
		if !m.Role.Valid() {
			return &UnknownRoleError{Index: i, Role: m.Role}
		}
	}
	return nil
}

// ParseMessage parses the "role:content" shorthand used on the command line.
func ParseMessage(s string) (Message, error) {
	role, content, ok := strings.Cut(s, ":")
	if !ok {
		return Message{}, fmt.Errorf("message %q: want role:content", s)
	}
	m := Message{Role: Role(strings.ToLower(strings.TrimSpace(role))), Content: content}
	if !m.Role.Valid() {
		return Message{}, &UnknownRoleError{Role: m.Role}
	}
	return m, nil
}
