package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"wardrobeapi/models"
	"wardrobeapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type OutfitsController struct {
	Images    services.ClothingImages
	Assembler services.OutfitAssembler
	Advisor   services.OutfitAdvisor
}

type SuggestedOutfitOut struct {
	Name        string                      `json:"name"`
	Items       []string                    `json:"items"`
	ItemDetails []models.ClothingItemDetail `json:"itemDetails"`
}

func (controller *OutfitsController) OutfitRoutes(g *echo.Group) {
	g.POST("/suggest", controller.SuggestOutfits)
	g.GET("/occasions", controller.ListOccasions)
	g.POST("/suggest-ai", controller.SuggestAIOutfits)
}

func (controller *OutfitsController) ListOccasions(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"occasions": services.OccasionKeys})
}

// SuggestOutfits samples outfits from the category rules of one occasion.
func (controller *OutfitsController) SuggestOutfits(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var req models.OutfitSuggestIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	occasion := req.Occasion
	if _, ok := services.OutfitRules[occasion]; occasion == "" || !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid occasion"})
	}

	items := []models.ClothingItem{}
	query := ClothingQuery(db, user.ID, models.ClothingFilter{})
	if len(req.ExcludeIDs) > 0 {
		query = query.Where("id NOT IN ?", req.ExcludeIDs)
	}
	if err := query.Find(&items).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}
	controller.Images.PopulateImageURLs(c.Request().Context(), items)

	outfits, err := controller.Assembler.Assemble(occasion, items)
	if errors.Is(err, services.ErrInvalidOccasion) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid occasion"})
	}
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}
	fmt.Printf("[Outfits] user %v occasion %s: %d outfits from %d items\n", user.ID, occasion, len(outfits), len(items))
	return c.JSON(http.StatusOK, echo.Map{
		"outfits":  outfits,
		"occasion": occasion,
		"total":    len(outfits),
	})
}

// SuggestAIOutfits answers a free-text request with the model, or with the rule engine when the
// model cannot help.
func (controller *OutfitsController) SuggestAIOutfits(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var req models.AIOutfitSuggestIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Query is required"})
	}

	items := []models.ClothingItem{}
	if err := ClothingQuery(db, user.ID, models.ClothingFilter{}).Find(&items).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}
	controller.Images.PopulateImageURLs(c.Request().Context(), items)

	suggestion := controller.Advisor.Suggest(c.Request().Context(), query, items)
	fmt.Printf("[Outfits] user %v AI query answered from %s source\n", user.ID, suggestion.Source)

	outfits := make([]SuggestedOutfitOut, 0, len(suggestion.Outfits))
	for _, outfit := range suggestion.Outfits {
		outfits = append(outfits, SuggestedOutfitOut{
			Name:        outfit.Name,
			Items:       outfit.Items,
			ItemDetails: services.SuggestionDetails(outfit, items),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"outfits":        outfits,
		"general_advice": suggestion.GeneralAdvice,
		"missing_items":  suggestion.MissingItems,
		"query":          query,
		"totalItems":     len(items),
	})
}
