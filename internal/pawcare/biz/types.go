package biz

// Classification 紧急程度分类结果。
type Classification string

const (
	Urgent              Classification = "URGENT"
	NonUrgent           Classification = "NON_URGENT"
	Uncertain           Classification = "UNCERTAIN"
	GeneralConversation Classification = "GENERAL_CONVERSATION"
)

// Sender 对话消息的发送方。
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChatMessage 前端随请求提交的一条历史消息。
type ChatMessage struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// ConversationState 单次请求内的对话状态，按值传递，不在请求之间共享。
type ConversationState struct {
	History []ChatMessage
}

// NewConversationState 由请求携带的历史构建对话状态，丢弃未知发送方和空消息。
func NewConversationState(history []ChatMessage) ConversationState {
	msgs := make([]ChatMessage, 0, len(history))
	for _, m := range history {
		if m.Text == "" || (m.Sender != SenderUser && m.Sender != SenderAI) {
			continue
		}
		msgs = append(msgs, m)
	}
	return ConversationState{History: msgs}
}

// UserTurns 返回最近 n 条用户消息，按时间顺序。
func (s ConversationState) UserTurns(n int) []string {
	var turns []string
	for i := len(s.History) - 1; i >= 0 && len(turns) < n; i-- {
		if s.History[i].Sender == SenderUser {
			turns = append(turns, s.History[i].Text)
		}
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns
}

// DocumentChunk 带来源元数据的文档片段。
type DocumentChunk struct {
	Text     string
	Ordinal  int // 文件内序号
	Metadata map[string]string
}

// ImageStatus 图像分析状态。
type ImageStatus string

const (
	ImageOK          ImageStatus = "ok"
	ImageUnavailable ImageStatus = "unavailable"
	ImageMalformed   ImageStatus = "malformed"
	ImageFailed      ImageStatus = "failed"
)

// ImageAnalysisResult 图像分类的初步信号。
type ImageAnalysisResult struct {
	Status         ImageStatus `json:"status"`
	PredictedLabel string      `json:"predicted_label,omitempty"`
	Confidence     float64     `json:"confidence"`
	Summary        string      `json:"summary"`
	RawScores      []float64   `json:"raw_scores"`
}

// Meaningful 只有成功的分析结果才会融合进问题。
func (r *ImageAnalysisResult) Meaningful() bool {
	return r != nil && r.Status == ImageOK
}

// Answer 回答生成结果。
type Answer struct {
	Text        string
	UsedContext bool
}

// Action 前端需要执行的动作。
type Action string

const (
	ActionImmediateVet Action = "IMMEDIATE_VET_CONSULTATION"
	ActionRecommendVet Action = "VET_CONSULTATION_RECOMMENDED"
	ActionMonitor      Action = "MONITOR_AND_FOLLOW_UP"
	ActionNone         Action = "NONE"
)

// ImageSummary 响应中的图像分析部分。
type ImageSummary struct {
	Summary string    `json:"summary"`
	Raw     []float64 `json:"raw"`
}

// ResponseData StructuredResponse 的附加数据。
type ResponseData struct {
	ActionRequired          Action        `json:"action_required"`
	SuggestFindVet          bool          `json:"suggest_find_vet"`
	NavigateToEmergencyPage bool          `json:"navigate_to_emergency_page"`
	SagemakerAnalysis       *ImageSummary `json:"sagemaker_analysis"`
	ErrorRetrievingDetails  bool          `json:"error_retrieving_details"`
}

// StructuredResponse 对上层暴露的唯一响应结构。
type StructuredResponse struct {
	Urgency  Classification `json:"urgency"`
	Response string         `json:"response"`
	Data     ResponseData   `json:"data"`
}

// FileFailure 单个文件处理失败的记录。
type FileFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// IndexReport 目录索引结果。
type IndexReport struct {
	Directory string        `json:"directory"`
	Files     int           `json:"files"`
	Chunks    int           `json:"chunks"`
	Failures  []FileFailure `json:"failures,omitempty"`
}
