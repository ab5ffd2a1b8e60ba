package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/pawcare/internal/pawcare/metrics"
	"github.com/kart-io/pawcare/internal/pawcare/store"
	"github.com/kart-io/pawcare/internal/pkg/pawcare/textutil"
	"github.com/kart-io/pawcare/pkg/errors"
	"github.com/kart-io/pawcare/pkg/llm"
)

// 助手固定话术。
const (
	NoInformationReply = "I don't have specific information on that in my current knowledge base."
	OffTopicReply      = "I'm designed to assist with pet health questions. Do you have any concerns about your pet that I can help with today?"
)

// DefaultPersonaPrompt 回答提示词模板，占位符为 {{chat_history}}、{{context}}、{{question}}。
const DefaultPersonaPrompt = `You are PetHealth AI, a friendly, empathetic, and knowledgeable virtual assistant dedicated to providing pet health information.
Your primary goal is to help pet owners by offering clear, accurate, and easy-to-understand advice based on the provided context from veterinary documents and the ongoing conversation.
Always maintain a supportive and understanding tone, especially if the user expresses concern about their pet.

Follow these guidelines strictly:
1.  Base your answers on the 'Retrieved Context'.
2.  Use the 'Chat History' to understand the flow of the conversation, address follow-up questions, and maintain context.
3.  If the 'Retrieved Context' does not contain sufficient information to answer the 'Human's Question', clearly state that the information is not available in your current knowledge base. For example: "` + NoInformationReply + `" Do NOT invent information or attempt to answer outside the provided context.
4.  If the question is off-topic (not related to pet health), politely decline or gently steer the conversation back. For example: "` + OffTopicReply + `"
5.  Provide answers in a conversational and accessible style. Avoid overly technical jargon. If technical terms are necessary, explain them simply.
6.  If the user expresses worry, anxiety, or distress, acknowledge their feelings with empathy before providing information. For example: "I understand this must be worrying for you..." or "I can see why you'd be concerned about that..."
7.  Do NOT provide specific medical diagnoses or prescribe treatments. Always strongly recommend consulting a qualified veterinarian for diagnosis, treatment decisions, or in emergencies. If an image finding is included in the question, treat it only as a preliminary signal and never as a diagnosis.

Chat History:
{{chat_history}}

Retrieved Context:
{{context}}

Human's Question: {{question}}

PetHealth AI's Answer:`

// AnswererConfig 回答器配置。
type AnswererConfig struct {
	// TopK 检索片段数。
	TopK int
	// Temperature 生成温度。
	Temperature float64
	// Timeout 检索加生成的总超时。
	Timeout time.Duration
	// PersonaPrompt 提示词模板，为空时使用 DefaultPersonaPrompt。
	PersonaPrompt string
}

// Answerer 基于检索上下文生成回答。不持有任何请求间共享的对话状态。
type Answerer struct {
	embedder *Embedder
	store    store.VectorStore
	chat     llm.ChatProvider
	metrics  *metrics.PipelineMetrics
	config   *AnswererConfig
}

// NewAnswerer 创建回答器实例。
func NewAnswerer(embedder *Embedder, vectorStore store.VectorStore, chat llm.ChatProvider, m *metrics.PipelineMetrics, config *AnswererConfig) *Answerer {
	if config.PersonaPrompt == "" {
		config.PersonaPrompt = DefaultPersonaPrompt
	}
	return &Answerer{
		embedder: embedder,
		store:    vectorStore,
		chat:     chat,
		metrics:  m,
		config:   config,
	}
}

// EffectiveQuestion 将有效的图像结论融合进问题。
func EffectiveQuestion(query string, image *ImageAnalysisResult) string {
	if !image.Meaningful() {
		return query
	}
	return fmt.Sprintf("%s\n\n(Attached photo analysis: %s)", query, image.Summary)
}

// Answer 检索并生成回答。检索或生成失败返回 ErrAnswerFailed。
func (a *Answerer) Answer(ctx context.Context, query string, state ConversationState, image *ImageAnalysisResult) (*Answer, error) {
	start := time.Now()
	answer, err := a.answer(ctx, query, state, image)
	if a.metrics != nil {
		a.metrics.RecordAnswer(time.Since(start), err)
	}
	return answer, err
}

func (a *Answerer) answer(ctx context.Context, query string, state ConversationState, image *ImageAnalysisResult) (*Answer, error) {
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	question := EffectiveQuestion(query, image)

	// 1. 检索
	vector, err := a.embedder.Embed(ctx, question)
	if err != nil {
		return nil, errors.ErrAnswerFailed.WithCause(fmt.Errorf("embed question: %w", err))
	}
	chunks, err := a.store.Query(ctx, vector, a.config.TopK)
	if err != nil {
		return nil, errors.ErrAnswerFailed.WithCause(fmt.Errorf("retrieve context: %w", err))
	}
	logger.Debugw("Retrieved context", "query", textutil.TruncateString(query, 75), "chunks", len(chunks))

	// 2. 生成
	prompt := a.buildPrompt(question, state, chunks)
	text, err := a.chat.Generate(ctx, prompt, "", llm.WithTemperature(a.config.Temperature))
	if err != nil {
		return nil, errors.ErrAnswerFailed.WithCause(fmt.Errorf("generate answer: %w", err))
	}

	text = strings.TrimSpace(text)
	logger.Infow("Answer generated", "length", len(text), "context_chunks", len(chunks))
	return &Answer{Text: text, UsedContext: len(chunks) > 0}, nil
}

func (a *Answerer) buildPrompt(question string, state ConversationState, chunks []store.ScoredChunk) string {
	return strings.NewReplacer(
		"{{chat_history}}", renderHistory(state),
		"{{context}}", renderContext(chunks),
		"{{question}}", question,
	).Replace(a.config.PersonaPrompt)
}

func renderHistory(state ConversationState) string {
	if len(state.History) == 0 {
		return "(no previous messages)"
	}
	var sb strings.Builder
	for _, m := range state.History {
		if m.Sender == SenderUser {
			sb.WriteString("Human: ")
		} else {
			sb.WriteString("PetHealth AI: ")
		}
		sb.WriteString(m.Text)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderContext(chunks []store.ScoredChunk) string {
	if len(chunks) == 0 {
		return "(no relevant documents found)"
	}
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n\n")
}
