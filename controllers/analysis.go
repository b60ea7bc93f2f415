package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"wardrobeapi/models"
	"wardrobeapi/services"

	"github.com/labstack/echo/v4"
)

type AnalysisController struct {
	Analyzer services.ClothingAnalyzer
}

func (controller *AnalysisController) AnalysisRoutes(g *echo.Group) {
	g.POST("/analyze", controller.AnalyzeImage)
	g.POST("/analyze-upload", controller.AnalyzeUpload)
}

func analysisResponse(c echo.Context, result services.AnalysisResult) error {
	return c.JSON(http.StatusOK, echo.Map{
		"success":  result.Success,
		"message":  result.Message,
		"analysis": result.Analysis,
	})
}

func unreadableImageResponse(c echo.Context) error {
	return analysisResponse(c, services.AnalysisResult{
		Success:  false,
		Message:  "Could not read image data",
		Analysis: services.MockClothingAnalysis(),
	})
}

// AnalyzeImage runs the vision model on an inline image. Failures still answer 200 with the
// default record so the client can prefill its form.
func (controller *AnalysisController) AnalyzeImage(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	var req models.AnalyzeImageIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Image) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Image data is required"})
	}
	image, err := services.ParseDataURL(strings.TrimSpace(req.Image))
	if err != nil {
		fmt.Printf("[Analysis] user %v sent an unreadable image: %v\n", user.ID, err)
		return unreadableImageResponse(c)
	}
	result := controller.Analyzer.Analyze(c.Request().Context(), image)
	fmt.Printf("[Analysis] user %v success=%v mock=%v\n", user.ID, result.Success, result.Mock)
	return analysisResponse(c, result)
}

func (controller *AnalysisController) AnalyzeUpload(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	data, err := uploadedImage(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Could not read uploaded image"})
	}
	if len(data) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No image file uploaded"})
	}
	image, err := services.NormalizeUploadImage(data)
	if errors.Is(err, services.ErrUnsupportedImage) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid image data"})
	}
	if err != nil {
		fmt.Printf("[Analysis] user %v uploaded an unreadable image: %v\n", user.ID, err)
		return unreadableImageResponse(c)
	}
	result := controller.Analyzer.Analyze(c.Request().Context(), image)
	fmt.Printf("[Analysis] user %v upload success=%v mock=%v\n", user.ID, result.Success, result.Mock)
	return analysisResponse(c, result)
}
