package services

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"thomas-backend/internal/models"
	"thomas-backend/internal/perplexity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// contextWindow is how many trailing messages are loaded per turn;
	// contextSent is how many of those actually go upstream. Both exist to
	// bound latency and token cost, not to summarize.
	contextWindow = 10
	contextSent   = 3

	titleMaxLen = 50
)

const systemPrompt = "You are Thomas, a helpful AI assistant. Respond naturally and conversationally. " +
	"Only introduce yourself as Thomas when explicitly greeted or asked who you are. " +
	"For regular questions, just provide helpful, direct answers without repeatedly saying your name. " +
	"Keep responses concise, friendly, and informative. Use formatting like bullet points or line breaks when helpful. " +
	"No citations unless specifically requested."

var ErrConversationNotFound = errors.New("conversation not found")

var (
	citationRefRe   = regexp.MustCompile(`(\[\d+\])+`)
	citationWordRe  = regexp.MustCompile(`(?i)\[citation:\s*\d+\]`)
	repeatedSpaceRe = regexp.MustCompile(`[ \t]{2,}`)
)

type TurnResult struct {
	Reply          string
	ConversationID uuid.UUID
}

type ChatService struct {
	db  *gorm.DB
	llm *perplexity.Client
}

func NewChatService(db *gorm.DB, llm *perplexity.Client) *ChatService {
	return &ChatService{db: db, llm: llm}
}

// HandleTurn runs one chat exchange for the given user. The user message is
// persisted before the upstream call so it survives any downstream failure;
// upstream failures never surface to the caller, they degrade to a canned
// reply. A persistence failure on the reply path is logged and swallowed so
// the caller still gets the reply.
func (s *ChatService) HandleTurn(ctx context.Context, userID uuid.UUID, message string, conversationID *uuid.UUID) (*TurnResult, error) {
	conv, err := s.resolveConversation(userID, message, conversationID)
	if err != nil {
		return nil, err
	}

	var priorCount int64
	if err := s.db.Model(&models.Message{}).Where("conversation_id = ?", conv.ID).Count(&priorCount).Error; err != nil {
		return nil, err
	}

	userMsg := models.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		Role:           models.RoleUser,
		Content:        message,
	}
	if err := s.db.Create(&userMsg).Error; err != nil {
		return nil, err
	}

	reply := s.generateReply(ctx, conv.ID, message)

	replyMsg := models.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		Role:           models.RoleAssistant,
		Content:        reply,
	}
	if err := s.db.Create(&replyMsg).Error; err != nil {
		slog.Error("Failed to persist assistant reply", "conversation_id", conv.ID, "error", err)
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if priorCount == 0 {
		updates["title"] = truncate(message, titleMaxLen)
	}
	if err := s.db.Model(&models.Conversation{}).Where("id = ?", conv.ID).Updates(updates).Error; err != nil {
		slog.Error("Failed to update conversation", "conversation_id", conv.ID, "error", err)
	}

	return &TurnResult{Reply: reply, ConversationID: conv.ID}, nil
}

func (s *ChatService) resolveConversation(userID uuid.UUID, message string, conversationID *uuid.UUID) (*models.Conversation, error) {
	if conversationID != nil {
		var conv models.Conversation
		err := s.db.First(&conv, "id = ? AND user_id = ?", *conversationID, userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		if err != nil {
			return nil, err
		}
		return &conv, nil
	}

	conv := models.Conversation{
		ID:     uuid.New(),
		UserID: userID,
		Title:  truncate(message, titleMaxLen),
	}
	if err := s.db.Create(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// generateReply produces the assistant text for one turn: the upstream
// completion when configured and healthy, a canned reply with a contextual
// notice otherwise. One attempt, no retries.
func (s *ChatService) generateReply(ctx context.Context, conversationID uuid.UUID, message string) string {
	if !s.llm.Configured() {
		return DemoReply(message) + NoticeNoKey
	}

	history, err := s.loadContext(conversationID)
	if err != nil {
		slog.Error("Failed to load conversation context", "conversation_id", conversationID, "error", err)
		history = []perplexity.Message{{Role: string(models.RoleUser), Content: message}}
	}

	messages := make([]perplexity.Message, 0, len(history)+1)
	messages = append(messages, perplexity.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)

	text, outcome := s.llm.Complete(ctx, messages)
	switch outcome {
	case perplexity.OutcomeOK:
		return cleanReply(text)
	case perplexity.OutcomeUnauthorized:
		slog.Warn("Perplexity API key rejected")
		return DemoReply(message) + NoticeInvalidKey
	case perplexity.OutcomeTimeout:
		slog.Warn("Perplexity API call timed out", "conversation_id", conversationID)
		return DemoReply(message) + NoticeTimeout
	case perplexity.OutcomeNetwork:
		slog.Warn("Perplexity API unreachable", "conversation_id", conversationID)
		return DemoReply(message) + NoticeNetwork
	default:
		slog.Warn("Perplexity API error", "conversation_id", conversationID)
		return DemoReply(message) + NoticeGeneric
	}
}

// loadContext returns the trailing slice of the conversation, oldest first.
// The user message for the current turn is already persisted, so it is part
// of the window.
func (s *ChatService) loadContext(conversationID uuid.UUID) ([]perplexity.Message, error) {
	var msgs []models.Message
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Limit(contextWindow).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}

	// Newest-first from the query; reverse to creation order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	if len(msgs) > contextSent {
		msgs = msgs[len(msgs)-contextSent:]
	}

	out := make([]perplexity.Message, len(msgs))
	for i, m := range msgs {
		out[i] = perplexity.Message{Role: string(m.Role), Content: m.Content}
	}
	return out, nil
}

// cleanReply strips citation markers like "[1]", "[1][2]" and
// "[citation: 3]" and collapses runs of spaces left behind.
func cleanReply(text string) string {
	text = citationRefRe.ReplaceAllString(text, "")
	text = citationWordRe.ReplaceAllString(text, "")
	text = repeatedSpaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// truncate hard-truncates to maxLen runes, never splitting a multi-byte
// character, and appends an ellipsis when anything was cut.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
