// Package chat holds the request model of the RAG and Agent question-answering panel.
package chat

import (
	"fmt"
	"strings"
)

// Mode is the backend answering strategy.
type Mode string

// Chat mode constants.
const (
	// RAG answers from retrieved documents in a single generation pass.
	RAG Mode = "rag"
	// Agent answers through a multi-step tool-using loop.
	Agent Mode = "agent"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == RAG || m == Agent
}

// ParseMode parses a mode name, defaulting to RAG when empty.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return RAG, nil
	}
	if !m.IsValid() {
		return "", fmt.Errorf("invalid chat mode: %q", s)
	}
	return m, nil
}

// Role identifies the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior message sent as conversation history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is the body of a streaming chat call.
type Request struct {
	Question string `json:"question"`
	History  []Turn `json:"history,omitempty"`
}
