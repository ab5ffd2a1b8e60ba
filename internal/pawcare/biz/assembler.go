package biz

// 响应文案。
const (
	EmergencyMessage = "Based on what you've described, this may be an emergency. Please contact your veterinarian or the nearest emergency animal hospital immediately."
	UncertainCaveat  = "I can't tell for certain how urgent this is from the information provided, so please consider contacting your veterinarian to be safe.\n\n"
	ApologyMessage   = "I apologize, but I encountered a technical difficulty. Could you please try rephrasing or asking again in a moment?"
)

// Assemble 将分类、图像结果和回答组装为 StructuredResponse。
//
// URGENT 使用固定急救话术，不依赖 answer；answerErr 非空时降级为 UNCERTAIN 并返回致歉话术。
func Assemble(classification Classification, image *ImageAnalysisResult, answer *Answer, answerErr error) *StructuredResponse {
	resp := &StructuredResponse{
		Urgency: classification,
		Data:    ResponseData{SagemakerAnalysis: imageSummary(image)},
	}

	if classification == Urgent {
		resp.Response = EmergencyMessage
		if image != nil && image.Summary != "" {
			resp.Response += "\n\n" + image.Summary
		}
		resp.Data.ActionRequired = ActionImmediateVet
		resp.Data.SuggestFindVet = true
		resp.Data.NavigateToEmergencyPage = true
		return resp
	}

	if answerErr != nil || answer == nil {
		resp.Urgency = Uncertain
		resp.Response = ApologyMessage
		resp.Data.ActionRequired = ActionRecommendVet
		resp.Data.SuggestFindVet = true
		resp.Data.ErrorRetrievingDetails = true
		return resp
	}

	switch classification {
	case NonUrgent:
		resp.Response = answer.Text
		resp.Data.ActionRequired = ActionMonitor
	case GeneralConversation:
		resp.Response = answer.Text
		resp.Data.ActionRequired = ActionNone
	default:
		// 未知分类按 UNCERTAIN 处理
		resp.Urgency = Uncertain
		resp.Response = UncertainCaveat + answer.Text
		resp.Data.ActionRequired = ActionRecommendVet
		resp.Data.SuggestFindVet = true
	}
	return resp
}

func imageSummary(image *ImageAnalysisResult) *ImageSummary {
	if image == nil {
		return nil
	}
	raw := image.RawScores
	if raw == nil {
		raw = []float64{}
	}
	return &ImageSummary{Summary: image.Summary, Raw: raw}
}
