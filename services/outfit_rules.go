package services

import (
	"errors"
	"math/rand"
	"wardrobeapi/models"
)

// OutfitRule lists the categories that may fill each slot for one occasion.
type OutfitRule struct {
	Tops      []models.Category
	Bottoms   []models.Category
	Footwear  []models.Category
	Outerwear []models.Category
}

var OutfitRules = map[string]OutfitRule{
	"casual": {
		Tops:      []models.Category{models.CategoryTShirt, models.CategoryShirt},
		Bottoms:   []models.Category{models.CategoryJeans, models.CategoryPants},
		Footwear:  []models.Category{models.CategoryShoes},
		Outerwear: []models.Category{models.CategoryJacket},
	},
	"work": {
		Tops:      []models.Category{models.CategoryShirt},
		Bottoms:   []models.Category{models.CategoryPants},
		Footwear:  []models.Category{models.CategoryShoes},
		Outerwear: []models.Category{models.CategoryJacket},
	},
	"formal": {
		Tops:      []models.Category{models.CategoryShirt, models.CategoryDress},
		Bottoms:   []models.Category{models.CategoryPants, models.CategorySkirt},
		Footwear:  []models.Category{models.CategoryShoes},
		Outerwear: []models.Category{models.CategoryJacket},
	},
}

// OccasionKeys keeps the order occasions are listed to clients.
var OccasionKeys = []string{"casual", "work", "formal"}

const outfitTrials = 3

var ErrInvalidOccasion = errors.New("invalid occasion")

// RandomSource is the subset of *rand.Rand the assembler draws from.
type RandomSource interface {
	Intn(n int) int
	Float64() float64
}

type globalRandom struct{}

func (globalRandom) Intn(n int) int   { return rand.Intn(n) }
func (globalRandom) Float64() float64 { return rand.Float64() }

// DefaultRandomSource draws from the process-wide generator.
var DefaultRandomSource RandomSource = globalRandom{}

type Outfit struct {
	Top       *models.ClothingItem `json:"top"`
	Bottom    *models.ClothingItem `json:"bottom,omitempty"`
	Footwear  *models.ClothingItem `json:"footwear"`
	Outerwear *models.ClothingItem `json:"outerwear,omitempty"`
}

type OutfitAssembler struct {
	Random RandomSource
}

func NewOutfitAssembler(random RandomSource) OutfitAssembler {
	if random == nil {
		random = DefaultRandomSource
	}
	return OutfitAssembler{Random: random}
}

// Assemble samples up to three outfits for occasion out of items. Trials that end up without a
// top or footwear are dropped.
func (a OutfitAssembler) Assemble(occasion string, items []models.ClothingItem) ([]Outfit, error) {
	rule, ok := OutfitRules[occasion]
	if !ok {
		return nil, ErrInvalidOccasion
	}

	byCategory := map[models.Category][]*models.ClothingItem{}
	for i := range items {
		byCategory[items[i].Category] = append(byCategory[items[i].Category], &items[i])
	}

	outfits := []Outfit{}
	for range outfitTrials {
		outfit := Outfit{}
		outfit.Top = a.pick(rule.Tops, byCategory)
		if outfit.Top == nil || outfit.Top.Category != models.CategoryDress {
			outfit.Bottom = a.pick(rule.Bottoms, byCategory)
		}
		outfit.Footwear = a.pick(rule.Footwear, byCategory)
		if a.Random.Float64() > 0.5 {
			outfit.Outerwear = a.pick(rule.Outerwear, byCategory)
		}
		if outfit.Top != nil && outfit.Footwear != nil {
			outfits = append(outfits, outfit)
		}
	}
	return outfits, nil
}

// pick chooses one of the allowed categories that has items, then one item inside it.
func (a OutfitAssembler) pick(allowed []models.Category, byCategory map[models.Category][]*models.ClothingItem) *models.ClothingItem {
	var available []models.Category
	for _, category := range allowed {
		if len(byCategory[category]) > 0 {
			available = append(available, category)
		}
	}
	if len(available) == 0 {
		return nil
	}
	category := available[a.Random.Intn(len(available))]
	candidates := byCategory[category]
	return candidates[a.Random.Intn(len(candidates))]
}
