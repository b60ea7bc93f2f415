package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

// LLMModelName is the Gemini model a request is sent to.
type LLMModelName int32

const (
	Flash25 LLMModelName = iota
	Flash25Image
)

func (t LLMModelName) String() string {
	if t == Flash25Image {
		return "gemini-2.5-flash-image-preview"
	}
	return "gemini-2.5-flash"
}

func floatPointer(f float32) *float32 {
	return &f
}

type InlineImage struct {
	MIMEType string
	Data     []byte
}

// LLMRequest is one multimodal prompt. Images are sent before the prompt text.
type LLMRequest struct {
	SystemInstruction string
	Images            []InlineImage
	Prompt            string
	// ResponseSchema switches the response to JSON
	ResponseSchema *genai.Schema
	Temperature    float32
}

type LLMResponse struct {
	Response           string        `json:"response"`
	Images             []InlineImage `json:"-"`
	InputTokenCount    int32         `json:"input_token_count"`
	Thoughts           string        `json:"thoughts"`
	ThoughtsTokenCount int32         `json:"thoughts_token_count"`
	OutputTokenCount   int32         `json:"output_token_count"`
	TotalTokenCount    int32         `json:"total_token_count"`
}

type LLMProcessor interface {
	Configured() bool
	Generate(ctx context.Context, request LLMRequest, modelName LLMModelName) (*LLMResponse, error)
}

type GoogleLLMProcessor struct{}

type ResponseWithThoughts struct {
	Thoughts string `json:"thoughts"`
	Text     string `json:"text"`
}

func (GoogleLLMProcessor) Configured() bool {
	return os.Getenv("GOOGLE_API_KEY") != ""
}

func (GoogleLLMProcessor) Generate(ctx context.Context, request LLMRequest, modelName LLMModelName) (*LLMResponse, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  os.Getenv("GOOGLE_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}

	var parts []*genai.Part
	for _, image := range request.Images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: image.MIMEType,
				Data:     image.Data,
			},
		})
	}
	if request.Prompt != "" {
		parts = append(parts, &genai.Part{Text: request.Prompt})
	}

	config := &genai.GenerateContentConfig{
		CandidateCount:  1,
		MaxOutputTokens: 50000,
		Temperature:     floatPointer(request.Temperature),
	}
	if request.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: request.SystemInstruction}},
		}
	}
	if request.ResponseSchema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = request.ResponseSchema
	}

	result, err := client.Models.GenerateContent(ctx, modelName.String(), []*genai.Content{{Parts: parts}}, config)
	if err != nil {
		fmt.Println("Error in GenerateContent:", err)
		return nil, fmt.Errorf("%v", err)
	}

	var inputTokenCount, thoughtsTokenCount, outputTokenCount, totalTokenCount int32
	if result.UsageMetadata != nil {
		inputTokenCount = result.UsageMetadata.PromptTokenCount
		thoughtsTokenCount = result.UsageMetadata.ThoughtsTokenCount
		outputTokenCount = result.UsageMetadata.CandidatesTokenCount
		totalTokenCount = result.UsageMetadata.TotalTokenCount
		fmt.Printf("[LLM: %s] tokens in=%d out=%d thoughts=%d total=%d\n", modelName, inputTokenCount, outputTokenCount, thoughtsTokenCount, totalTokenCount)
	}

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		fmt.Println(result.PromptFeedback.BlockReason)
		fmt.Println(result.PromptFeedback.BlockReasonMessage)
		return nil, fmt.Errorf("content violation: %s", result.PromptFeedback.BlockReasonMessage)
	}

	images, err := GetAllInlineImages(result)
	if err != nil {
		return nil, fmt.Errorf("error getting candidate images: %v", err)
	}
	text, err := GetFirstCandidateTextWithThoughts(result)
	if err != nil {
		return nil, fmt.Errorf("error getting first candidate text: %v", err)
	}

	return &LLMResponse{
		Response:           text.Text,
		Images:             images,
		Thoughts:           text.Thoughts,
		InputTokenCount:    inputTokenCount,
		ThoughtsTokenCount: thoughtsTokenCount,
		OutputTokenCount:   outputTokenCount,
		TotalTokenCount:    totalTokenCount,
	}, nil
}

// GetAllInlineImages collects image parts of every candidate in order.
func GetAllInlineImages(result *genai.GenerateContentResponse) ([]InlineImage, error) {
	if result == nil {
		return nil, fmt.Errorf("empty response")
	}

	var images []InlineImage
	for _, cand := range result.Candidates {
		for _, rating := range cand.SafetyRatings {
			if rating.Blocked {
				return nil, fmt.Errorf("content blocked by safety setting: %s", rating.Category)
			}
		}
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			inlineData := part.InlineData
			if inlineData == nil || len(inlineData.Data) == 0 {
				continue
			}
			mimeType := inlineData.MIMEType
			if mimeType == "" {
				mimeType = "image/png"
			}
			if strings.HasPrefix(mimeType, "image/") {
				images = append(images, InlineImage{MIMEType: mimeType, Data: inlineData.Data})
			}
		}
	}
	return images, nil
}

func GetFirstCandidateTextWithThoughts(result *genai.GenerateContentResponse) (*ResponseWithThoughts, error) {
	var thinkingContent string
	var text strings.Builder
	for _, c := range result.Candidates {
		fmt.Println("Finish reason: ", c.FinishReason, " Finish message: ", c.FinishMessage)
		for _, rating := range c.SafetyRatings {
			if rating.Blocked {
				return nil, fmt.Errorf("content violation: response contains %s", rating.Category)
			}
		}
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if part.Thought {
				thinkingContent = part.Text
				continue
			}
			text.WriteString(part.Text)
		}
		// only the first candidate is used
		break
	}
	return &ResponseWithThoughts{
		Thoughts: thinkingContent,
		Text:     text.String(),
	}, nil
}

// StripCodeFences removes a surrounding markdown code block from model output.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.Index(trimmed, "\n"); newline >= 0 {
		// drop the language tag
		trimmed = trimmed[newline+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
