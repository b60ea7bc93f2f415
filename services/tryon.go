package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNoImageGenerated = errors.New("No image was generated")

const defaultTryOnPrompt = "Edit the first image to dress the person with clothes from the other images. Keep the person's face, body shape, and background unchanged. Only change the clothes to match the items shown in the other images, ensuring they fit naturally and realistically on the person."

// TryOnPrompt appends caller instructions to the default edit instruction.
func TryOnPrompt(extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return defaultTryOnPrompt
	}
	return fmt.Sprintf("%s Additional instructions: %s", defaultTryOnPrompt, extra)
}

type TryOnGenerator interface {
	Generate(ctx context.Context, person InlineImage, garments []InlineImage, prompt string) (InlineImage, error)
}

type TryOnService struct {
	LLM LLMProcessor
}

// Generate sends the person photo first, garments after it, then the instruction, and returns
// the first image of the answer.
func (s TryOnService) Generate(ctx context.Context, person InlineImage, garments []InlineImage, prompt string) (InlineImage, error) {
	if !s.LLM.Configured() {
		return InlineImage{}, errors.New("Gemini API not configured. Please check your API key.")
	}
	images := append([]InlineImage{person}, garments...)
	response, err := s.LLM.Generate(ctx, LLMRequest{
		Images:      images,
		Prompt:      TryOnPrompt(prompt),
		Temperature: 1,
	}, Flash25Image)
	if err != nil {
		return InlineImage{}, err
	}
	if len(response.Images) == 0 {
		return InlineImage{}, ErrNoImageGenerated
	}
	return response.Images[0], nil
}
