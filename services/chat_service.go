package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"card_recommend/config"
	"card_recommend/logger"
	"card_recommend/models"
	"card_recommend/repository"
	"card_recommend/utils"
)

// ErrEmptyMessage 追问内容为空
var ErrEmptyMessage = errors.New("chat message is empty")

// ChatService 针对已完成的推荐结果回答追问，回复原样返回，不做结构化解析
type ChatService struct {
	history   repository.HistoryStore
	inference Inference
	maxTurns  int
}

// NewChatService 创建追问服务
func NewChatService(cfg *config.Config, history repository.HistoryStore, inference Inference) *ChatService {
	maxTurns := cfg.Chat.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &ChatService{history: history, inference: inference, maxTurns: maxTurns}
}

// Reply 基于推荐结果和对话记录生成一条回复
func (s *ChatService) Reply(ctx context.Context, resultID int64, transcript []models.ChatTurn, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	result, err := s.history.Get(ctx, resultID)
	if err != nil {
		return "", err
	}

	if len(transcript) > s.maxTurns {
		transcript = transcript[len(transcript)-s.maxTurns:]
	}
	prompt := BuildChatPrompt(result, transcript, message)

	reply, err := s.inference.Query(ctx, prompt)
	if err != nil {
		return "", err
	}
	logger.Info("追问回复完成", "result_id", resultID, "turns", len(transcript), "reply_preview", utils.Preview(reply, 100))
	return reply, nil
}

// BuildChatPrompt 把推荐结果渲染为固定格式的上下文，依次拼接对话记录（从旧到新）、新问题和回复要求
func BuildChatPrompt(result *models.RecommendationResult, transcript []models.ChatTurn, message string) string {
	var b strings.Builder
	b.WriteString("You are a credit card assistant answering follow-up questions about recommendations you already made.\n")
	b.WriteString("Use only the recommendation context below as your source of card facts.\n\n")

	b.WriteString("RECOMMENDATION CONTEXT\n")
	if result != nil {
		if summary := strings.TrimSpace(result.Summary); summary != "" {
			b.WriteString("Summary: " + summary + "\n")
		}
		writeChatFilters(&b, result.Filters)
		writeChatCards(&b, result.Items)
	} else {
		b.WriteString("No prior recommendation is available.\n")
	}

	b.WriteString("\nCONVERSATION SO FAR\n")
	written := 0
	for _, turn := range transcript {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		speaker := "User"
		if turn.Role == models.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, content)
		written++
	}
	if written == 0 {
		b.WriteString("(no earlier messages)\n")
	}

	b.WriteString("\nNEW QUESTION\n")
	b.WriteString("User: " + strings.TrimSpace(message) + "\n\n")

	b.WriteString("RESPONSE STYLE\n")
	b.WriteString("- Be concise and answer the question directly.\n")
	b.WriteString("- Ground every statement in the cards listed above. If the context does not contain the answer, say so instead of guessing.\n")
	b.WriteString("- Do not end with closing pleasantries or offers of further help.\n")
	return b.String()
}

func writeChatFilters(b *strings.Builder, f models.FilterSet) {
	var lines []string
	if networks := utils.DeduplicateSlice(f.Networks); len(networks) > 0 {
		lines = append(lines, "Card networks: "+strings.Join(networks, ", "))
	}
	if fee := strings.TrimSpace(f.FeeRange); fee != "" {
		lines = append(lines, "Annual fee range: "+fee)
	}
	if categories := utils.DeduplicateSlice(f.RewardCategories); len(categories) > 0 {
		lines = append(lines, "Preferred reward categories: "+strings.Join(categories, ", "))
	}
	if extra := strings.TrimSpace(f.AdditionalRequirements); extra != "" {
		lines = append(lines, "Additional requirements: "+extra)
	}

	b.WriteString("Filters:\n")
	if len(lines) == 0 {
		b.WriteString("- none\n")
		return
	}
	for _, l := range lines {
		b.WriteString("- " + l + "\n")
	}
}

func writeChatCards(b *strings.Builder, items []models.RecommendedItem) {
	b.WriteString("Recommended cards (ranked):\n")
	if len(items) == 0 {
		b.WriteString("- none\n")
		return
	}
	for i, item := range items {
		header := item.Name
		if item.Issuer != "" {
			header += " (" + item.Issuer + ")"
		}
		fmt.Fprintf(b, "%d. %s\n", i+1, header)
		writeCardField(b, "Network", item.Network)
		writeCardField(b, "Annual fee", item.AnnualFee)
		writeCardField(b, "Rewards rate", item.RewardsRate)
		writeCardField(b, "Offer", item.Offer)
		writeCardField(b, "Benefits", strings.Join(utils.DeduplicateSlice(item.Benefits), "; "))
		writeCardField(b, "Why it fits", item.Reason)
		writeCardField(b, "Apply", item.ApplyURL)
	}
}

func writeCardField(b *strings.Builder, label, value string) {
	if value = strings.TrimSpace(value); value != "" {
		fmt.Fprintf(b, "   %s: %s\n", label, value)
	}
}
