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

type TryOnController struct {
	Images    services.ClothingImages
	Generator services.TryOnGenerator
}

func (controller *TryOnController) TryOnRoutes(g *echo.Group) {
	g.POST("/generate", controller.GenerateTryOn)
}

// orderedItems returns items in the order their ids were requested.
func orderedItems(ids []uint, items []models.ClothingItem) []models.ClothingItem {
	byID := make(map[uint]models.ClothingItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	ordered := make([]models.ClothingItem, 0, len(items))
	seen := map[uint]bool{}
	for _, id := range ids {
		if item, ok := byID[id]; ok && !seen[id] {
			ordered = append(ordered, item)
			seen[id] = true
		}
	}
	return ordered
}

func (controller *TryOnController) GenerateTryOn(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	ctx := c.Request().Context()

	var req models.TryOnIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.UserImage) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "User image is required"})
	}
	if len(req.ClothingIDs) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "At least one clothing item must be selected"})
	}
	person, err := services.ParseDataURL(req.UserImage)
	if err != nil || !strings.HasPrefix(person.MIMEType, "image/") {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid user image"})
	}

	var items []models.ClothingItem
	if err := db.Where("id IN ? AND owner_id = ?", req.ClothingIDs, user.ID).Find(&items).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}
	if len(items) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No valid clothing items found"})
	}

	garments := controller.Images.AllBytes(ctx, orderedItems(req.ClothingIDs, items))
	if len(garments) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Selected items have no usable images"})
	}
	fmt.Printf("[TryOn] user %v with %d of %d garments\n", user.ID, len(garments), len(req.ClothingIDs))

	generated, err := controller.Generator.Generate(ctx, person, garments, req.Prompt)
	if err != nil {
		fmt.Printf("[TryOn] user %v generation failed: %v\n", user.ID, err)
		if !errors.Is(err, services.ErrNoImageGenerated) {
			sentry.CaptureException(fmt.Errorf("try-on generation: %w", err))
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"image":   services.EncodeDataURL(generated),
	})
}
