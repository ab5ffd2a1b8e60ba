package biz

import (
	"context"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/pawcare/internal/pawcare/metrics"
	"github.com/kart-io/pawcare/internal/pkg/pawcare/textutil"
	"github.com/kart-io/pawcare/pkg/errors"
	"github.com/kart-io/pawcare/pkg/llm"
)

const classifierSystemPrompt = `You are a veterinary triage assistant. Classify the pet owner's latest message into exactly one of these categories:
URGENT: signs of a possible emergency that needs a veterinarian right now, such as poisoning or toxin ingestion, heavy bleeding, difficulty breathing, seizures, collapse, major trauma, a swollen hard abdomen, or straining without passing urine.
NON_URGENT: a pet health question or symptom that is not an emergency and can be handled with general guidance or a routine vet visit.
UNCERTAIN: a pet health concern whose urgency cannot be judged from the information given.
GENERAL_CONVERSATION: greetings, thanks, small talk, or messages unrelated to a pet's health.
Respond with only the category name.`

// ClassifierConfig 分类器配置。
type ClassifierConfig struct {
	// HistoryWindow 参与分类的最近用户消息条数。
	HistoryWindow int
	// MaxTokens 输出 token 上限。
	MaxTokens int
	// Timeout 单次调用超时。
	Timeout time.Duration
}

// Classifier 紧急程度分类器。
type Classifier struct {
	chat    llm.ChatProvider
	metrics *metrics.PipelineMetrics
	config  *ClassifierConfig
}

// NewClassifier 创建分类器实例。
func NewClassifier(chat llm.ChatProvider, m *metrics.PipelineMetrics, config *ClassifierConfig) *Classifier {
	return &Classifier{chat: chat, metrics: m, config: config}
}

// Classify 对当前问题分类。调用失败或超时返回 UNCERTAIN，从不返回错误。
func (c *Classifier) Classify(ctx context.Context, query string, state ConversationState) Classification {
	start := time.Now()
	result := c.classify(ctx, query, state)
	if c.metrics != nil {
		c.metrics.RecordClassification(string(result), time.Since(start))
	}
	return result
}

func (c *Classifier) classify(ctx context.Context, query string, state ConversationState) Classification {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: classifierSystemPrompt},
		{Role: llm.RoleUser, Content: classifierUserContent(query, state.UserTurns(c.config.HistoryWindow))},
	}

	raw, err := c.chat.Chat(ctx, messages, llm.WithTemperature(0), llm.WithMaxTokens(c.config.MaxTokens))
	if err != nil {
		logger.Warnw("Urgency classification failed, defaulting to UNCERTAIN",
			"error", errors.ErrClassificationFailed.WithCause(err).Error(),
		)
		return Uncertain
	}

	result := ParseClassification(raw)
	logger.Debugw("Urgency classified",
		"query", textutil.TruncateString(query, 75),
		"raw", raw,
		"result", string(result),
	)
	return result
}

func classifierUserContent(query string, turns []string) string {
	var sb strings.Builder
	if len(turns) > 0 {
		sb.WriteString("Recent messages from the pet owner:\n")
		for _, t := range turns {
			sb.WriteString("- ")
			sb.WriteString(t)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Latest message: ")
	sb.WriteString(query)
	return sb.String()
}

// normalizeLabel 大写，下划线和连字符换成空格，合并空白。
func normalizeLabel(raw string) string {
	s := strings.ToUpper(raw)
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// ParseClassification 将模型输出映射到分类。
// GENERAL CONVERSATION 优先；去掉 NON URGENT 后仍含 URGENT 则为 URGENT；
// 仅含 NON URGENT 为 NON_URGENT；其他一律 UNCERTAIN。
func ParseClassification(raw string) Classification {
	s := normalizeLabel(raw)

	if strings.Contains(s, "GENERAL CONVERSATION") {
		return GeneralConversation
	}

	rest := strings.ReplaceAll(s, "NON URGENT", " ")
	rest = strings.ReplaceAll(rest, "NONURGENT", " ")
	switch {
	case strings.Contains(rest, "URGENT"):
		return Urgent
	case rest != s:
		return NonUrgent
	default:
		return Uncertain
	}
}
