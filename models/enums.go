package models

import (
	"strings"

	"github.com/go-playground/validator"
	"golang.org/x/text/cases"
)

type Category string

const (
	CategoryTShirt      Category = "T-Shirt"
	CategoryShirt       Category = "Shirt"
	CategoryPants       Category = "Pants"
	CategoryJeans       Category = "Jeans"
	CategoryDress       Category = "Dress"
	CategorySkirt       Category = "Skirt"
	CategoryJacket      Category = "Jacket"
	CategoryShoes       Category = "Shoes"
	CategoryAccessories Category = "Accessories"
)

var Categories = []string{"T-Shirt", "Shirt", "Pants", "Jeans", "Dress", "Skirt", "Jacket", "Shoes", "Accessories"}

var Colors = []string{"Black", "White", "Gray", "Navy", "Blue", "Red", "Green", "Brown", "Beige"}

// SecondaryColors is wider than Colors, vision models report accents outside the primary palette.
var SecondaryColors = []string{"Black", "White", "Gray", "Navy", "Blue", "Red", "Green", "Brown", "Beige", "Yellow", "Orange", "Pink", "Purple"}

var Patterns = []string{"Solid", "Striped", "Checkered", "Floral", "Printed", "Geometric", "Abstract", "None"}

var Materials = []string{"Cotton", "Denim", "Leather", "Wool", "Polyester", "Silk", "Linen", "Synthetic", "Mixed", "Unknown"}

var Styles = []string{"Casual", "Formal", "Business", "Sport", "Streetwear", "Vintage", "Elegant", "Bohemian"}

var Fits = []string{"Slim", "Regular", "Loose", "Oversized", "Fitted", "Relaxed"}

var Seasons = []string{"Spring", "Summer", "Fall", "Winter", "All-Season"}

var Genders = []string{"Men", "Women", "Unisex", "Boys", "Girls"}

var Sizes = []string{"XS", "S", "M", "L", "XL", "XXL", "XXXL"}

// Occasions is the canonical occasion vocabulary for catalog items.
var Occasions = []string{
	"casual daily wear",
	"work office",
	"business meeting",
	"job interview",
	"date night",
	"party",
	"wedding guest",
	"cocktail party",
	"beach vacation",
	"gym workout",
	"outdoor activities",
	"brunch",
	"clubbing",
	"formal event",
	"conference",
	"weekend casual",
	"travel",
	"home lounging",
}

const DefaultPattern = "None"

var folder = cases.Fold()

// CanonicalValue returns the enumeration spelling of value, matched case-insensitively after trimming.
func CanonicalValue(allowed []string, value string) (string, bool) {
	needle := folder.String(strings.TrimSpace(value))
	for _, candidate := range allowed {
		if folder.String(candidate) == needle {
			return candidate, true
		}
	}
	return "", false
}

// CanonicalValues maps every value onto its enumeration spelling and drops the ones that do not match.
func CanonicalValues(allowed []string, values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if canonical, ok := CanonicalValue(allowed, v); ok {
			result = append(result, canonical)
		}
	}
	return result
}

func enumValidator(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return true
		}
		_, ok := CanonicalValue(allowed, value)
		return ok
	}
}

var (
	ValidateCategory = enumValidator(Categories)
	ValidateColor    = enumValidator(Colors)
	ValidatePattern  = enumValidator(Patterns)
	ValidateMaterial = enumValidator(Materials)
	ValidateStyle    = enumValidator(Styles)
	ValidateFit      = enumValidator(Fits)
	ValidateGender   = enumValidator(Genders)
)

func listValidator(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		raw, ok := fl.Field().Interface().(RawList)
		if !ok {
			return false
		}
		values, err := raw.Strict()
		if err != nil {
			return false
		}
		if allowed == nil {
			return true
		}
		for _, v := range values {
			if _, ok := CanonicalValue(allowed, v); !ok {
				return false
			}
		}
		return true
	}
}

var (
	ValidateSeasonList   = listValidator(Seasons)
	ValidateOccasionList = listValidator(Occasions)
	ValidateFeatureList  = listValidator(nil)
)

// RegisterValidations attaches every catalog tag to v.
func RegisterValidations(v *validator.Validate) {
	v.RegisterValidation("platform", ValidatePlatform)
	v.RegisterValidation("category", ValidateCategory)
	v.RegisterValidation("color", ValidateColor)
	v.RegisterValidation("pattern", ValidatePattern)
	v.RegisterValidation("material", ValidateMaterial)
	v.RegisterValidation("style", ValidateStyle)
	v.RegisterValidation("fit", ValidateFit)
	v.RegisterValidation("gender", ValidateGender)
	v.RegisterValidation("season", ValidateSeasonList)
	v.RegisterValidation("occasion", ValidateOccasionList)
	v.RegisterValidation("features", ValidateFeatureList)
}
