package controllers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"wardrobeapi/models"
	"wardrobeapi/services"
	"wardrobeapi/tasks"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errItemNotFound = errors.New("Item not found")

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type ClothesController struct {
	Images services.ClothingImages
}

func (controller *ClothesController) ClothingRoutes(g *echo.Group) {
	g.GET("", controller.ListClothes)
	g.POST("", controller.CreateClothing)
	g.GET("/:id", controller.GetClothing)
	g.PUT("/:id", controller.UpdateClothing)
	g.DELETE("/:id", controller.DeleteClothing)
	g.POST("/:id/analyze", controller.AnalyzeClothing)
}

// ClothingQuery scopes the catalog to one owner and applies every non-empty filter, newest first.
func ClothingQuery(db *gorm.DB, ownerID uint, filter models.ClothingFilter) *gorm.DB {
	query := db.Model(&models.ClothingItem{}).Where("owner_id = ?", ownerID)
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Color != "" {
		query = query.Where("color = ?", filter.Color)
	}
	if filter.Season != "" {
		query = query.Where("? = ANY(season)", filter.Season)
	}
	if filter.Occasion != "" {
		query = query.Where("? = ANY(occasion)", filter.Occasion)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(search) + "%"
		query = query.Where("(name ILIKE ? OR brand ILIKE ?)", pattern, pattern)
	}
	return query.Order("created_at DESC, id DESC")
}

func findOwnedItem(db *gorm.DB, ownerID uint, rawID string) (models.ClothingItem, error) {
	var item models.ClothingItem
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return item, errItemNotFound
	}
	result := db.Where("id = ? AND owner_id = ?", id, ownerID).Take(&item)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return item, errItemNotFound
	}
	return item, result.Error
}

func itemLookupError(c echo.Context, err error) error {
	if errors.Is(err, errItemNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Item not found"})
	}
	sentry.CaptureException(err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// uploadedImage reads the "image" file part. A request without one returns nil data and no error.
func uploadedImage(c echo.Context) ([]byte, error) {
	fileHeader, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func formValue(form *multipart.Form, key string) (string, bool) {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func formPointer(form *multipart.Form, key string) *string {
	if value, ok := formValue(form, key); ok {
		return &value
	}
	return nil
}

func formBool(form *multipart.Form, key string) bool {
	value, _ := formValue(form, key)
	parsed, _ := strconv.ParseBool(value)
	return parsed
}

func clothingInFromForm(form *multipart.Form) models.ClothingIn {
	in := models.ClothingIn{
		Size:     formPointer(form, "size"),
		Brand:    formPointer(form, "brand"),
		Notes:    formPointer(form, "notes"),
		Season:   models.RawListFromForm(form.Value["season"]),
		Occasion: models.RawListFromForm(form.Value["occasion"]),
		Features: models.RawListFromForm(form.Value["features"]),
		AutoTag:  formBool(form, "auto_tag"),
	}
	in.Name, _ = formValue(form, "name")
	in.Category, _ = formValue(form, "category")
	in.Color, _ = formValue(form, "color")
	in.Pattern, _ = formValue(form, "pattern")
	in.Material, _ = formValue(form, "material")
	in.Style, _ = formValue(form, "style")
	in.Fit, _ = formValue(form, "fit")
	in.Gender, _ = formValue(form, "gender")
	return in
}

func clothingUpdateInFromForm(form *multipart.Form) models.ClothingUpdateIn {
	return models.ClothingUpdateIn{
		Name:     formPointer(form, "name"),
		Category: formPointer(form, "category"),
		Color:    formPointer(form, "color"),
		Size:     formPointer(form, "size"),
		Brand:    formPointer(form, "brand"),
		Notes:    formPointer(form, "notes"),
		Pattern:  formPointer(form, "pattern"),
		Material: formPointer(form, "material"),
		Style:    formPointer(form, "style"),
		Fit:      formPointer(form, "fit"),
		Gender:   formPointer(form, "gender"),
		Season:   models.RawListFromForm(form.Value["season"]),
		Occasion: models.RawListFromForm(form.Value["occasion"]),
		Features: models.RawListFromForm(form.Value["features"]),
		AutoTag:  formBool(form, "auto_tag"),
	}
}

func canonical(allowed []string, value string) string {
	if match, ok := models.CanonicalValue(allowed, value); ok {
		return match
	}
	return strings.TrimSpace(value)
}

func optionalText(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

func cleanFeatures(values []string) []string {
	features := []string{}
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			features = append(features, trimmed)
		}
	}
	return features
}

func patternOrDefault(value string) string {
	if value = canonical(models.Patterns, value); value == "" {
		return models.DefaultPattern
	}
	return value
}

func newClothingItem(ownerID uint, in models.ClothingIn) models.ClothingItem {
	return models.ClothingItem{
		OwnerID:        ownerID,
		Name:           strings.TrimSpace(in.Name),
		Category:       models.Category(canonical(models.Categories, in.Category)),
		Color:          canonical(models.Colors, in.Color),
		Size:           optionalText(in.Size),
		Brand:          optionalText(in.Brand),
		Notes:          optionalText(in.Notes),
		Pattern:        patternOrDefault(in.Pattern),
		Material:       canonical(models.Materials, in.Material),
		Style:          canonical(models.Styles, in.Style),
		Fit:            canonical(models.Fits, in.Fit),
		Gender:         canonical(models.Genders, in.Gender),
		Season:         models.CanonicalValues(models.Seasons, in.Season.Values()),
		Occasion:       models.CanonicalValues(models.Occasions, in.Occasion.Values()),
		Features:       cleanFeatures(in.Features.Values()),
		AnalysisStatus: tasks.AnalysisStatusIdle,
	}
}

// applyClothingUpdate changes only the fields present in the request. Lists are replaced whole.
func applyClothingUpdate(item *models.ClothingItem, in models.ClothingUpdateIn) {
	if in.Name != nil {
		item.Name = strings.TrimSpace(*in.Name)
	}
	if in.Category != nil {
		item.Category = models.Category(canonical(models.Categories, *in.Category))
	}
	if in.Color != nil {
		item.Color = canonical(models.Colors, *in.Color)
	}
	if in.Size != nil {
		item.Size = optionalText(in.Size)
	}
	if in.Brand != nil {
		item.Brand = optionalText(in.Brand)
	}
	if in.Notes != nil {
		item.Notes = optionalText(in.Notes)
	}
	if in.Pattern != nil {
		item.Pattern = patternOrDefault(*in.Pattern)
	}
	if in.Material != nil {
		item.Material = canonical(models.Materials, *in.Material)
	}
	if in.Style != nil {
		item.Style = canonical(models.Styles, *in.Style)
	}
	if in.Fit != nil {
		item.Fit = canonical(models.Fits, *in.Fit)
	}
	if in.Gender != nil {
		item.Gender = canonical(models.Genders, *in.Gender)
	}
	if in.Season.Present() {
		item.Season = models.CanonicalValues(models.Seasons, in.Season.Values())
	}
	if in.Occasion.Present() {
		item.Occasion = models.CanonicalValues(models.Occasions, in.Occasion.Values())
	}
	if in.Features.Present() {
		item.Features = cleanFeatures(in.Features.Values())
	}
}

// inlineImage turns a submitted data URL (or bare base64) into the stored data URL.
func inlineImage(value string) (*string, error) {
	image, err := services.ParseDataURL(strings.TrimSpace(value))
	if err != nil {
		return nil, err
	}
	encoded := services.EncodeDataURL(image)
	return &encoded, nil
}

func uploadError(c echo.Context, err error) error {
	if errors.Is(err, services.ErrUnsupportedImage) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid image data"})
	}
	sentry.CaptureException(err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Could not store image, please try again"})
}

// startAnalysis marks the item pending and puts it on the analysis queue.
func startAnalysis(c echo.Context, db *gorm.DB, item *models.ClothingItem) error {
	enqueuer, ok := c.Get("__asynqclient").(tasks.Enqueuer)
	if !ok || enqueuer == nil {
		return errors.New("analysis queue is not configured")
	}
	item.AnalysisStatus = tasks.AnalysisStatusPending
	item.AnalysisRetryTimes = 0
	item.AnalysisErrorMessage = nil
	if err := db.Omit(clause.Associations).Save(item).Error; err != nil {
		return err
	}
	if err := tasks.EnqueueClothingAnalysis(enqueuer, item.ID); err != nil {
		item.AnalysisStatus = tasks.AnalysisStatusIdle
		if rollbackErr := db.Model(item).Update("analysis_status", tasks.AnalysisStatusIdle).Error; rollbackErr != nil {
			fmt.Printf("[Clothes: %v] could not reset analysis status: %v\n", item.ID, rollbackErr)
			sentry.CaptureException(rollbackErr)
		}
		return err
	}
	return nil
}

func (controller *ClothesController) ListClothes(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var filter models.ClothingFilter
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &filter); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid filters"})
	}

	items := []models.ClothingItem{}
	if err := ClothingQuery(db, user.ID, filter).Find(&items).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}
	controller.Images.PopulateImageURLs(c.Request().Context(), items)
	return c.JSON(http.StatusOK, echo.Map{
		"items": items,
		"total": len(items),
	})
}

func (controller *ClothesController) GetClothing(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	item, err := findOwnedItem(db, user.ID, c.Param("id"))
	if err != nil {
		return itemLookupError(c, err)
	}
	items := []models.ClothingItem{item}
	controller.Images.PopulateImageURLs(c.Request().Context(), items)
	return c.JSON(http.StatusOK, echo.Map{"item": items[0]})
}

func (controller *ClothesController) CreateClothing(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	ctx := c.Request().Context()

	var req models.ClothingIn
	var upload []byte
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid form data"})
		}
		req = clothingInFromForm(form)
		if upload, err = uploadedImage(c); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Could not read uploaded image"})
		}
	} else if err := c.Bind(&req); err != nil {
		fmt.Printf("[Clothes] bad request body: %v\n", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return ValidationError(c, err)
	}
	if len(upload) == 0 && strings.TrimSpace(req.Image) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Image is required"})
	}

	item := newClothingItem(user.ID, req)
	if len(upload) > 0 {
		objectKey, err := controller.Images.Upload(ctx, user.ID, upload)
		if err != nil {
			fmt.Printf("[User %v] image upload failed: %v\n", user.ID, err)
			return uploadError(c, err)
		}
		item.ImageKey = &objectKey
	} else {
		image, err := inlineImage(req.Image)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid image data"})
		}
		item.Image = image
	}

	if err := db.Create(&item).Error; err != nil {
		sentry.CaptureException(err)
		if item.ImageKey != nil {
			controller.Images.Delete(ctx, *item.ImageKey)
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}
	fmt.Printf("[Clothes: %v] Created by user %v\n", item.ID, user.ID)

	if req.AutoTag {
		if err := startAnalysis(c, db, &item); err != nil {
			fmt.Printf("[Clothes: %v] could not start analysis: %v\n", item.ID, err)
			sentry.CaptureException(err)
		}
	}

	items := []models.ClothingItem{item}
	controller.Images.PopulateImageURLs(ctx, items)
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Item added successfully",
		"item":    items[0],
	})
}

func (controller *ClothesController) UpdateClothing(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	ctx := c.Request().Context()

	item, err := findOwnedItem(db, user.ID, c.Param("id"))
	if err != nil {
		return itemLookupError(c, err)
	}

	var req models.ClothingUpdateIn
	var upload []byte
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid form data"})
		}
		req = clothingUpdateInFromForm(form)
		if upload, err = uploadedImage(c); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Could not read uploaded image"})
		}
	} else if err := c.Bind(&req); err != nil {
		fmt.Printf("[Clothes] bad request body: %v\n", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return ValidationError(c, err)
	}

	applyClothingUpdate(&item, req)

	var replacedKey string
	if item.ImageKey != nil {
		replacedKey = *item.ImageKey
	}
	imageReplaced := false
	if len(upload) > 0 {
		objectKey, err := controller.Images.Upload(ctx, user.ID, upload)
		if err != nil {
			fmt.Printf("[Clothes: %v] image upload failed: %v\n", item.ID, err)
			return uploadError(c, err)
		}
		item.ImageKey = &objectKey
		item.Image = nil
		imageReplaced = true
	} else if req.Image != nil && strings.TrimSpace(*req.Image) != "" {
		image, err := inlineImage(*req.Image)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid image data"})
		}
		item.Image = image
		item.ImageKey = nil
		imageReplaced = true
	}

	if err := db.Omit(clause.Associations).Save(&item).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}
	if imageReplaced && replacedKey != "" {
		controller.Images.Delete(ctx, replacedKey)
	}

	if req.AutoTag {
		if err := startAnalysis(c, db, &item); err != nil {
			fmt.Printf("[Clothes: %v] could not start analysis: %v\n", item.ID, err)
			sentry.CaptureException(err)
		}
	}

	items := []models.ClothingItem{item}
	controller.Images.PopulateImageURLs(ctx, items)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Item updated successfully",
		"item":    items[0],
	})
}

func (controller *ClothesController) DeleteClothing(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	item, err := findOwnedItem(db, user.ID, c.Param("id"))
	if err != nil {
		return itemLookupError(c, err)
	}
	if err := db.Delete(&item).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}
	if item.ImageKey != nil {
		controller.Images.Delete(c.Request().Context(), *item.ImageKey)
	}
	fmt.Printf("[Clothes: %v] Deleted by user %v\n", item.ID, user.ID)
	return c.JSON(http.StatusOK, echo.Map{"message": "Item deleted successfully"})
}

// AnalyzeClothing queues background tagging for an existing item.
func (controller *ClothesController) AnalyzeClothing(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	item, err := findOwnedItem(db, user.ID, c.Param("id"))
	if err != nil {
		return itemLookupError(c, err)
	}
	if !item.HasImage() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Item has no image to analyze"})
	}
	if item.AnalysisStatus == tasks.AnalysisStatusPending {
		return c.JSON(http.StatusAccepted, echo.Map{"message": "Analysis already in progress", "status": item.AnalysisStatus})
	}
	if err := startAnalysis(c, db, &item); err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Sorry, could not start analysis, please try again"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{
		"message": "Analysis started",
		"status":  tasks.AnalysisStatusPending,
	})
}
