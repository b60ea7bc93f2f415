package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"wardrobeapi/models"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

type SuggestionSource string

const (
	SourcePrimary  SuggestionSource = "primary"
	SourceFallback SuggestionSource = "fallback"
)

type SuggestedOutfit struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

type OutfitSuggestion struct {
	Outfits       []SuggestedOutfit `json:"outfits"`
	GeneralAdvice string            `json:"general_advice"`
	MissingItems  []string          `json:"missing_items"`
	Source        SuggestionSource  `json:"-"`
}

func EmptyWardrobeSuggestion() OutfitSuggestion {
	return OutfitSuggestion{
		Outfits:       []SuggestedOutfit{},
		GeneralAdvice: "Your wardrobe is empty. Start by adding some clothing items!",
		MissingItems:  []string{"basic t-shirts", "jeans", "comfortable shoes"},
		Source:        SourceFallback,
	}
}

const outfitStylistInstruction = `You are an expert fashion stylist helping users create outfits from their existing wardrobe.
You have access to the user's complete wardrobe inventory and will suggest outfit combinations based on their query.
Consider factors like color coordination, style matching, appropriateness for the occasion, and seasonal considerations.

IMPORTANT OUTFIT RULES:
1. Each outfit MUST be a complete, wearable combination
2. Never suggest two items of the same category (e.g., two pants, two shirts) unless one of them is a dress
3. Valid outfit combinations include:
   - Top (shirt/t-shirt/blouse) + Bottom (pants/jeans/skirt/shorts)
   - Dress (can be worn alone as a complete outfit)
   - Top + Bottom + Outerwear (jacket/blazer/coat)
   - Any above + Shoes + Accessories
4. NEVER create outfits with only bottoms or only tops
5. NEVER suggest an outfit that doesn't match the user query requirements
6. Always use the actual item IDs provided in the wardrobe list when suggesting outfits.`

var outfitSuggestionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"outfits": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":  {Type: genai.TypeString},
					"items": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				},
				Required: []string{"name", "items"},
			},
		},
		"general_advice": {Type: genai.TypeString},
		"missing_items":  {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{"outfits", "general_advice", "missing_items"},
}

// FormatWardrobe renders one context line per item, in catalog order.
func FormatWardrobe(items []models.ClothingItem) string {
	lines := make([]string, 0, len(items))
	for i, item := range items {
		occasions := "general wear"
		if len(item.Occasion) > 0 {
			occasions = strings.Join(item.Occasion, ", ")
		}
		tags := "none"
		if len(item.Features) > 0 {
			tags = strings.Join(item.Features, ", ")
		}
		material := item.Material
		if material == "" {
			material = "unknown material"
		}
		pattern := item.Pattern
		if pattern == "" {
			pattern = "solid"
		}
		name := item.Name
		if name == "" {
			name = string(item.Category)
		}
		lines = append(lines, fmt.Sprintf(
			"Item %d (ID: %d): [CATEGORY: %s] %s %s by %s, size %s, made of %s, %s pattern, suitable for: %s. Tags: %s",
			i+1, item.ID, item.Category, item.Color, name, item.BrandOr("unknown brand"), item.SizeOr("unspecified"),
			material, pattern, occasions, tags,
		))
	}
	return strings.Join(lines, "\n")
}

func outfitUserPrompt(query string, items []models.ClothingItem) string {
	return fmt.Sprintf(`User Query: "%s"

Available Wardrobe Items:
%s

Based on the user's query and their available wardrobe, suggest 1-3 VALID, COMPLETE outfit combinations. Each outfit must be wearable on its own (not just two pants or two shirts). Return a JSON object with "outfits" (each with a "name" and the "items" ids), "general_advice" and "missing_items".

IMPORTANT: Use actual item IDs from the wardrobe list above. Return ONLY valid JSON.`, query, FormatWardrobe(items))
}

type OutfitAdvisor struct {
	LLM LLMProcessor
}

// Suggest asks the model for outfits and falls back to the rule engine whenever the model is
// unavailable or answers with something unusable.
func (a OutfitAdvisor) Suggest(ctx context.Context, query string, items []models.ClothingItem) OutfitSuggestion {
	if len(items) == 0 {
		return EmptyWardrobeSuggestion()
	}

	suggestion, err := a.primary(ctx, query, items)
	if err != nil {
		fmt.Printf("[Outfits] AI suggestion failed, falling back to rules: %v\n", err)
		sentry.AddBreadcrumb(&sentry.Breadcrumb{
			Category: "outfits",
			Message:  fmt.Sprintf("fallback suggestion: %v", err),
			Level:    sentry.LevelWarning,
		})
		return FallbackSuggestion(query, items)
	}
	fmt.Printf("[Outfits] %d outfits from %s source\n", len(suggestion.Outfits), suggestion.Source)
	return suggestion
}

func (a OutfitAdvisor) primary(ctx context.Context, query string, items []models.ClothingItem) (OutfitSuggestion, error) {
	if a.LLM == nil || !a.LLM.Configured() {
		return OutfitSuggestion{}, errors.New("llm not configured")
	}
	response, err := a.LLM.Generate(ctx, LLMRequest{
		SystemInstruction: outfitStylistInstruction,
		Prompt:            outfitUserPrompt(query, items),
		ResponseSchema:    outfitSuggestionSchema,
		Temperature:       0.7,
	}, Flash25)
	if err != nil {
		return OutfitSuggestion{}, err
	}
	return ParseOutfitSuggestion(response.Response, items)
}

// ParseOutfitSuggestion decodes a model answer and keeps only ids owned by the caller.
func ParseOutfitSuggestion(text string, items []models.ClothingItem) (OutfitSuggestion, error) {
	var raw struct {
		Outfits *[]struct {
			Name  string            `json:"name"`
			Items []json.RawMessage `json:"items"`
		} `json:"outfits"`
		GeneralAdvice string   `json:"general_advice"`
		MissingItems  []string `json:"missing_items"`
	}
	if err := json.Unmarshal([]byte(StripCodeFences(text)), &raw); err != nil {
		return OutfitSuggestion{}, fmt.Errorf("decode suggestion: %w", err)
	}
	if raw.Outfits == nil {
		return OutfitSuggestion{}, errors.New("suggestion has no outfits")
	}

	owned := make(map[string]bool, len(items))
	for _, item := range items {
		owned[strconv.FormatUint(uint64(item.ID), 10)] = true
	}

	suggestion := OutfitSuggestion{
		Outfits:       []SuggestedOutfit{},
		GeneralAdvice: raw.GeneralAdvice,
		MissingItems:  raw.MissingItems,
		Source:        SourcePrimary,
	}
	if suggestion.MissingItems == nil {
		suggestion.MissingItems = []string{}
	}
	for _, outfit := range *raw.Outfits {
		ids := []string{}
		for _, rawID := range outfit.Items {
			id := normalizeSuggestedID(rawID)
			if owned[id] {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			suggestion.Outfits = append(suggestion.Outfits, SuggestedOutfit{Name: outfit.Name, Items: ids})
		}
	}
	return suggestion, nil
}

// models answer ids either as strings or as numbers
func normalizeSuggestedID(raw json.RawMessage) string {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString)
	}
	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber.String()
	}
	return ""
}

var coarseTypes = []struct {
	Name       string
	Categories []string
}{
	{"tops", []string{"shirt", "blouse", "t-shirt", "top", "sweater"}},
	{"bottoms", []string{"pants", "jeans", "skirt", "shorts", "trousers"}},
	{"dresses", []string{"dress", "jumpsuit"}},
	{"outerwear", []string{"jacket", "coat", "blazer", "cardigan"}},
	{"shoes", []string{"shoes", "sneakers", "heels", "boots", "flats"}},
}

var formalOccasionWord = regexp.MustCompile(`\b(formal|business|work)\b`)

// DetectOccasion maps a free text query onto formal, semi-formal, athletic or casual.
func DetectOccasion(query string) string {
	q := strings.ToLower(query)
	containsAny := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(q, w) {
				return true
			}
		}
		return false
	}
	switch {
	case containsAny("formal", "business", "interview"):
		return "formal"
	case containsAny("party", "date", "dinner"):
		return "semi-formal"
	case containsAny("gym", "workout", "exercise"):
		return "athletic"
	}
	return "casual"
}

// CoarseType groups an item by its lowercased category. Unknown categories map to "".
func CoarseType(item models.ClothingItem) string {
	category := strings.ToLower(string(item.Category))
	for _, group := range coarseTypes {
		if slices.Contains(group.Categories, category) {
			return group.Name
		}
	}
	return ""
}

func filterByType(items []models.ClothingItem, coarse string) []models.ClothingItem {
	var result []models.ClothingItem
	for _, item := range items {
		if CoarseType(item) == coarse {
			result = append(result, item)
		}
	}
	return result
}

func isFormalTagged(item models.ClothingItem) bool {
	for _, occasion := range item.Occasion {
		if formalOccasionWord.MatchString(strings.ToLower(occasion)) {
			return true
		}
	}
	return false
}

func firstFormal(items []models.ClothingItem) *models.ClothingItem {
	for i := range items {
		if isFormalTagged(items[i]) {
			return &items[i]
		}
	}
	return nil
}

func itemID(item models.ClothingItem) string {
	return strconv.FormatUint(uint64(item.ID), 10)
}

// FallbackSuggestion builds outfits from category and occasion tags alone.
func FallbackSuggestion(query string, items []models.ClothingItem) OutfitSuggestion {
	occasion := DetectOccasion(query)
	tops := filterByType(items, "tops")
	bottoms := filterByType(items, "bottoms")
	dresses := filterByType(items, "dresses")

	outfits := []SuggestedOutfit{}
	if occasion == "formal" {
		top, bottom := firstFormal(tops), firstFormal(bottoms)
		if top != nil && bottom != nil {
			outfits = append(outfits, SuggestedOutfit{
				Name:  "Professional Look",
				Items: []string{itemID(*top), itemID(*bottom)},
			})
		}
	}

	if len(dresses) > 0 {
		chosen := dresses[0]
	search:
		for _, dress := range dresses {
			for _, o := range dress.Occasion {
				if strings.Contains(strings.ToLower(o), occasion) {
					chosen = dress
					break search
				}
			}
		}
		outfits = append(outfits, SuggestedOutfit{Name: "Dress Option", Items: []string{itemID(chosen)}})
	}

	if len(outfits) == 0 && len(tops) > 0 && len(bottoms) > 0 {
		outfits = append(outfits, SuggestedOutfit{
			Name:  "Casual Combination",
			Items: []string{itemID(tops[0]), itemID(bottoms[0])},
		})
	}

	return OutfitSuggestion{
		Outfits:       outfits,
		GeneralAdvice: "Consider the weather and comfort level when choosing your outfit",
		MissingItems:  missingItems(items, occasion),
		Source:        SourceFallback,
	}
}

func missingItems(items []models.ClothingItem, occasion string) []string {
	owned := map[string]bool{}
	for _, item := range items {
		owned[strings.ToLower(string(item.Category))] = true
	}
	missing := []string{}
	if occasion == "formal" {
		if !owned["blazer"] {
			missing = append(missing, "blazer")
		}
		if !owned["dress shirt"] {
			missing = append(missing, "dress shirt")
		}
	}
	if !owned["jeans"] {
		missing = append(missing, "casual jeans")
	}
	if !owned["sneakers"] {
		missing = append(missing, "comfortable sneakers")
	}
	return missing
}

// SuggestionDetails attaches the short item form to every suggested id.
func SuggestionDetails(outfit SuggestedOutfit, items []models.ClothingItem) []models.ClothingItemDetail {
	byID := make(map[string]models.ClothingItem, len(items))
	for _, item := range items {
		byID[itemID(item)] = item
	}
	details := []models.ClothingItemDetail{}
	for _, id := range outfit.Items {
		if item, ok := byID[id]; ok {
			details = append(details, item.Detail())
		}
	}
	return details
}
