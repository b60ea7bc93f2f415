package services

import (
	"context"
	"encoding/json"
	"fmt"
	"wardrobeapi/models"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

type ClothingAnalysis struct {
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Color           string   `json:"color"`
	SecondaryColors []string `json:"secondary_colors"`
	Pattern         string   `json:"pattern"`
	Material        string   `json:"material"`
	Style           string   `json:"style"`
	Fit             string   `json:"fit"`
	Season          []string `json:"season"`
	Occasion        []string `json:"occasion"`
	Gender          string   `json:"gender"`
	Brand           string   `json:"brand"`
	Features        []string `json:"features"`
	SuggestedSize   string   `json:"suggested_size"`
	ConfidenceScore float64  `json:"confidence_score"`
	Notes           string   `json:"notes"`
}

// AnalysisResult always carries a usable analysis. Mock is set when the record is the
// built-in default instead of a model answer.
type AnalysisResult struct {
	Success  bool
	Message  string
	Analysis ClothingAnalysis
	Mock     bool `json:"-"`
}

func MockClothingAnalysis() ClothingAnalysis {
	return ClothingAnalysis{
		Name:            "Analyzed Clothing Item",
		Category:        string(models.CategoryTShirt),
		Color:           "Blue",
		SecondaryColors: []string{},
		Pattern:         "Solid",
		Material:        "Cotton",
		Style:           "Casual",
		Fit:             "Regular",
		Season:          []string{"Spring", "Summer", "Fall"},
		Occasion:        []string{"casual daily wear", "home lounging"},
		Gender:          "Unisex",
		Brand:           "",
		Features:        []string{"short sleeves", "crew neck"},
		SuggestedSize:   "M",
		ConfidenceScore: 0.85,
		Notes:           "AI analysis not available - using default values",
	}
}

const clothingAnalysisInstruction = `Analyze this clothing item image and return a JSON object describing it.

Required fields:
- name: A descriptive name for the item
- category: the main category of the item
- color: the primary color

Include the optional fields when they are clearly visible or determinable:
- secondary_colors, pattern, material, style, fit, season, gender
- occasion: be specific, include every suitable scenario from the allowed list
- brand: brand name if visible, empty string otherwise
- features: notable features such as "ripped", "pockets", "buttons"
- suggested_size: estimated size
- confidence_score: confidence level between 0 and 1
- notes: any additional relevant details

Return ONLY valid JSON matching the schema.`

func enumSchema(values []string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Enum: values}
}

func enumListSchema(values []string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: enumSchema(values)}
}

var clothingAnalysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name":             {Type: genai.TypeString, Description: "A descriptive name for the clothing item"},
		"category":         enumSchema(models.Categories),
		"color":            enumSchema(models.Colors),
		"secondary_colors": enumListSchema(models.SecondaryColors),
		"pattern":          enumSchema(models.Patterns),
		"material":         enumSchema(models.Materials),
		"style":            enumSchema(models.Styles),
		"fit":              enumSchema(models.Fits),
		"season":           enumListSchema(models.Seasons),
		"occasion":         enumListSchema(models.Occasions),
		"gender":           enumSchema(models.Genders),
		"brand":            {Type: genai.TypeString, Description: "Brand name if visible"},
		"features":         {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"suggested_size":   enumSchema(models.Sizes),
		"confidence_score": {Type: genai.TypeNumber, Description: "Confidence level (0-1)"},
		"notes":            {Type: genai.TypeString},
	},
	Required: []string{
		"name", "category", "color", "secondary_colors", "pattern",
		"material", "style", "fit", "season", "occasion",
		"gender", "brand", "features", "suggested_size",
		"confidence_score", "notes",
	},
}

type ClothingAnalyzer interface {
	Analyze(ctx context.Context, image InlineImage) AnalysisResult
}

type ClothingAnalysisService struct {
	LLM LLMProcessor
}

func (s ClothingAnalysisService) Analyze(ctx context.Context, image InlineImage) AnalysisResult {
	if !s.LLM.Configured() {
		fmt.Println("[Analysis] GOOGLE_API_KEY not configured, returning mock data")
		return AnalysisResult{
			Success:  true,
			Message:  "Image analyzed successfully",
			Analysis: MockClothingAnalysis(),
			Mock:     true,
		}
	}

	response, err := s.LLM.Generate(ctx, LLMRequest{
		SystemInstruction: clothingAnalysisInstruction,
		Images:            []InlineImage{image},
		Prompt:            "Analyze the clothing item in this image.",
		ResponseSchema:    clothingAnalysisSchema,
		Temperature:       0.4,
	}, Flash25)
	if err != nil {
		fmt.Println("[Analysis] Vision call failed:", err)
		sentry.CaptureException(fmt.Errorf("clothing analysis: %w", err))
		return failedAnalysis(err.Error())
	}

	var analysis ClothingAnalysis
	if err := json.Unmarshal([]byte(StripCodeFences(response.Response)), &analysis); err != nil {
		fmt.Println("[Analysis] Failed to parse response:", err, response.Response)
		return failedAnalysis("Failed to parse analysis")
	}
	return AnalysisResult{
		Success:  true,
		Message:  "Image analyzed successfully",
		Analysis: analysis,
	}
}

func failedAnalysis(message string) AnalysisResult {
	return AnalysisResult{
		Success:  false,
		Message:  message,
		Analysis: MockClothingAnalysis(),
		Mock:     true,
	}
}

// ApplyAnalysis copies analysis values into the empty attributes of item. Values outside the
// catalog enumerations are skipped. It reports whether anything changed.
func ApplyAnalysis(item *models.ClothingItem, analysis ClothingAnalysis) bool {
	changed := false
	fillScalar := func(target *string, allowed []string, value string) {
		if *target != "" {
			return
		}
		if canonical, ok := models.CanonicalValue(allowed, value); ok {
			*target = canonical
			changed = true
		}
	}

	if item.Category == "" {
		if canonical, ok := models.CanonicalValue(models.Categories, analysis.Category); ok {
			item.Category = models.Category(canonical)
			changed = true
		}
	}
	fillScalar(&item.Color, models.Colors, analysis.Color)
	if item.Pattern == models.DefaultPattern {
		// None is the column default, a detected pattern is more specific
		if canonical, ok := models.CanonicalValue(models.Patterns, analysis.Pattern); ok && canonical != models.DefaultPattern {
			item.Pattern = canonical
			changed = true
		}
	} else {
		fillScalar(&item.Pattern, models.Patterns, analysis.Pattern)
	}
	fillScalar(&item.Material, models.Materials, analysis.Material)
	fillScalar(&item.Style, models.Styles, analysis.Style)
	fillScalar(&item.Fit, models.Fits, analysis.Fit)
	fillScalar(&item.Gender, models.Genders, analysis.Gender)

	if len(item.Season) == 0 {
		if seasons := models.CanonicalValues(models.Seasons, analysis.Season); len(seasons) > 0 {
			item.Season = seasons
			changed = true
		}
	}
	if len(item.Occasion) == 0 {
		if occasions := models.CanonicalValues(models.Occasions, analysis.Occasion); len(occasions) > 0 {
			item.Occasion = occasions
			changed = true
		}
	}
	if len(item.Features) == 0 && len(analysis.Features) > 0 {
		item.Features = analysis.Features
		changed = true
	}
	if item.BrandOr("") == "" && analysis.Brand != "" {
		item.Brand = StrPointer(analysis.Brand)
		changed = true
	}
	if item.SizeOr("") == "" {
		if size, ok := models.CanonicalValue(models.Sizes, analysis.SuggestedSize); ok {
			item.Size = StrPointer(size)
			changed = true
		}
	}
	return changed
}
