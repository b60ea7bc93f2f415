package controllers

import (
	"net/http"
	"strings"
	"wardrobeapi/models"
	"wardrobeapi/services"

	"github.com/labstack/echo/v4"
)

// PublicController serves the unauthenticated landing page demo.
type PublicController struct {
	Analyzer services.ClothingAnalyzer
}

func (controller *PublicController) PublicRoutes(g *echo.Group) {
	g.POST("/analyze-clothing", controller.AnalyzeClothing)
}

func (controller *PublicController) AnalyzeClothing(c echo.Context) error {
	var req models.AnalyzeImageIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	value := strings.TrimSpace(req.Image)
	if value == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Image is required"})
	}
	if !services.PublicImageRule.MatchString(value) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid image format. Please provide a base64 encoded image."})
	}
	image, err := services.ParseDataURL(value)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid image format. Please provide a base64 encoded image."})
	}

	result := controller.Analyzer.Analyze(c.Request().Context(), image)
	if !result.Success {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"error":   result.Message,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"analysis": result.Analysis,
			"message":  "Clothing analysis completed successfully",
		},
	})
}
