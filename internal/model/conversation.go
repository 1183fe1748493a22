package model

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
