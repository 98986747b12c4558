package models

// 对话角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn 一轮对话消息
type ChatTurn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=4000"`
}
