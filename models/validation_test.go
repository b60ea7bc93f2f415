package models

import (
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
)

func newTestValidator() *validator.Validate {
	v := validator.New()
	RegisterValidations(v)
	return v
}

func TestClothingInValidation(t *testing.T) {
	v := newTestValidator()

	valid := ClothingIn{
		Name:     "Oxford shirt",
		Category: "shirt",
		Color:    "WHITE",
		Pattern:  "solid",
		Season:   RawList(`["Spring"]`),
		Occasion: RawList(`"[\"work office\"]"`),
		Features: RawList(`["button-down collar"]`),
	}
	assert.NoError(t, v.Struct(valid))

	invalid := valid
	invalid.Category = "Hat"
	assert.Error(t, v.Struct(invalid))

	invalid = valid
	invalid.Season = RawList(`["Monsoon"]`)
	assert.Error(t, v.Struct(invalid))

	invalid = valid
	invalid.Occasion = RawList(`"{bad json"`)
	assert.Error(t, v.Struct(invalid))

	invalid = valid
	invalid.Fit = "Baggy"
	assert.Error(t, v.Struct(invalid))
}

func TestPlatformValidation(t *testing.T) {
	v := newTestValidator()
	for _, platform := range []string{"ios", "android", "web"} {
		assert.NoError(t, v.Struct(UserPushIn{Token: "abc", Platform: platform}), platform)
	}
	for _, platform := range []string{"IOS", "windows", ""} {
		assert.Error(t, v.Struct(UserPushIn{Token: "abc", Platform: platform}), platform)
	}
}
