package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wardrobeapi/dbhelper"
	"wardrobeapi/models"
	"wardrobeapi/services"
	"wardrobeapi/tasks"
	"wardrobeapi/test"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	e        *echo.Echo
	aws      *test.AWSProviderMock
	llm      *test.LLMProcessorMock
	enqueuer *test.EnqueuerMock
}

func newTestServer(t *testing.T, db *gorm.DB) testServer {
	aws := &test.AWSProviderMock{}
	llm := &test.LLMProcessorMock{}
	enqueuer := &test.EnqueuerMock{}
	blocklist, err := services.NewTokenBlocklist()
	require.NoError(t, err)
	e := SetupServer(db, test.GoogleServiceMock{}, aws, nil, enqueuer, test.URLCacheMock{AWSService: aws}, llm, blocklist)
	return testServer{e: e, aws: aws, llm: llm, enqueuer: enqueuer}
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type itemResponse struct {
	Message string              `json:"message"`
	Item    models.ClothingItem `json:"item"`
}

func pngBytes(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 20, G: 40, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newMultipartAuthRequest(t *testing.T, method, target, userPk string, fields map[string][]string, file []byte) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, values := range fields {
		for _, value := range values {
			require.NoError(t, writer.WriteField(key, value))
		}
	}
	if file != nil {
		part, err := writer.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, fmt.Sprintf("Bearer %s", test.GenerateUserToken(userPk)))
	return req
}

func TestCreateClothingJSON(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	s := newTestServer(t, db)
	user := test.FakeUser(db, "")

	reqBody := echo.Map{
		"name":     "Linen shirt",
		"category": "shirt",
		"color":    "white",
		"brand":    "Uniqlo",
		"season":   `["summer","Spring"]`,
		"occasion": []string{"Work Office", "brunch"},
		"features": []string{" long sleeves ", ""},
		"image":    test.PixelDataURL,
	}
	rec := serve(s.e, test.NewJSONAuthRequest("POST", "/api/clothes", UIntToStr(user.ID), reqBody))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var response itemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "Item added successfully", response.Message)
	assert.Equal(t, "Linen shirt", response.Item.Name)
	assert.Equal(t, models.CategoryShirt, response.Item.Category)
	assert.Equal(t, "White", response.Item.Color)
	assert.Equal(t, models.DefaultPattern, response.Item.Pattern)
	assert.Equal(t, []string{"Summer", "Spring"}, []string(response.Item.Season))
	assert.Equal(t, []string{"work office", "brunch"}, []string(response.Item.Occasion))
	assert.Equal(t, []string{"long sleeves"}, []string(response.Item.Features))
	assert.Equal(t, test.PixelDataURL, response.Item.ImageURL)
	assert.Equal(t, "idle", response.Item.AnalysisStatus)
	assert.Empty(t, s.enqueuer.Tasks)

	var stored models.ClothingItem
	require.NoError(t, db.First(&stored, response.Item.ID).Error)
	assert.Equal(t, user.ID, stored.OwnerID)
	require.NotNil(t, stored.Image)
	assert.Nil(t, stored.ImageKey)
}

func TestCreateClothingMalformedList(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	s := newTestServer(t, db)
	user := test.FakeUser(db, "")

	reqBody := echo.Map{
		"name":     "Jeans",
		"category": "Jeans",
		"color":    "Blue",
		"occasion": "{bad json",
		"image":    test.PixelDataURL,
	}
	rec := serve(s.e, test.NewJSONAuthRequest("POST", "/api/clothes", UIntToStr(user.ID), reqBody))
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	fields := response["fields"].(map[string]interface{})
	assert.Contains(t, fields, "occasion")

	var count int64
	db.Model(&models.ClothingItem{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateClothingInvalidInput(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	s := newTestServer(t, db)
	user := test.FakeUser(db, "")

	reqBody := echo.Map{
		"category": "Hat",
		"color":    "Blue",
		"season":   []string{"Monsoon"},
		"notes":    strings.Repeat("a", 501),
		"image":    test.PixelDataURL,
	}
	rec := serve(s.e, test.NewJSONAuthRequest("POST", "/api/clothes", UIntToStr(user.ID), reqBody))
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	fields := response["fields"].(map[string]interface{})
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "category")
	assert.Contains(t, fields, "season")
	assert.Contains(t, fields, "notes")
	assert.NotContains(t, fields, "color")
}

func TestCreateClothingRequiresImage(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	s := newTestServer(t, db)
	user := test.FakeUser(db, "")

	reqBody := echo.Map{"name": "Tee", "category": "T-Shirt", "color": "Black"}
	rec := serve(s.e, test.NewJSONAuthRequest("POST", "/api/clothes", UIntToStr(user.ID), reqBody))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "Image is required"}`, rec.Body.String())
}

func TestCreateClothingMultipart(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	s := newTestServer(t, db)
	user := test.FakeUser(db, "")

	fields := map[string][]string{
		"name":     {"Denim jacket"},
		"category": {"Jacket"},
		"color":    {"Blue"},
		"season":   {`["Fall","Winter"]`},
		"occasion": {"travel", "weekend casual"},
		"auto_tag": {"true"},
	}
	req := newMultipartAuthRequest(t, "POST", "/api/clothes", UIntToStr(user.ID), fields, pngBytes(t))
	rec := serve(s.e, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var response itemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, []string{"Fall", "Winter"}, []string(response.Item.Season))
	assert.Equal(t, []string{"travel", "weekend casual"}, []string(response.Item.Occasion))
	assert.True(t, strings.HasPrefix(response.Item.ImageURL, "https://fakebucketurl.com/clothes/"), response.Item.ImageURL)
	assert.Equal(t, tasks.AnalysisStatusPending, response.Item.AnalysisStatus)

	var stored models.ClothingItem
	require.NoError(t, db.First(&stored, response.Item.ID).Error)
	require.NotNil(t, stored.ImageKey)
	assert.True(t, strings.HasPrefix(*stored.ImageKey, fmt.Sprintf("clothes/%d/", user.ID)))
	assert.True(t, strings.HasSuffix(*stored.ImageKey, ".jpg"))
	assert.Nil(t, stored.Image)
	assert.Equal(t, []string{tasks.TypeClothingAnalyze}, s.enqueuer.TaskTypes())
}

func TestCreateClothingRejectsNonImageUpload(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	s := newTestServer(t, db)
	user := test.FakeUser(db, "")

	fields := map[string][]string{
		"name":     {"Notes"},
		"category": {"Shirt"},
		"color":    {"White"},
	}
	req := newMultipartAuthRequest(t, "POST", "/api/clothes", UIntToStr(user.ID), fields, []byte("just some plain text, not a photo"))
	rec := serve(s.e, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "Invalid image data"}`, rec.Body.String())
	assert.Empty(t, s.aws.Uploaded)

	var count int64
	db.Model(&models.ClothingItem{}).Where("owner_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateClothingUnauthorized(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	s := newTestServer(t, db)

	reqBody := echo.Map{"name": "Tee", "category": "T-Shirt", "color": "Black", "image": test.PixelDataURL}
	rec := serve(s.e, test.NewJSONAuthRequest("POST", "/api/clothes", "", reqBody))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListClothesFilters(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	s := newTestServer(t, db)
	user := test.FakeUser(db, "")
	other := test.FakeUser(db, "other@example.com")

	tee := test.FakeClothingItem(db, user, "Tee 100% cotton", models.CategoryTShirt, "White")
	jeans := test.FakeClothingItem(db, user, "Slim jeans", models.CategoryJeans, "Blue")
	jeans.Brand = test.NewRefString("Levi's")
	jeans.Season = []string{"Fall", "Winter"}
	db.Save(jeans)
	dress := test.FakeClothingItem(db, user, "Summer dress", models.CategoryDress, "Blue")
	dress.Season = []string{"Summer"}
	dress.Occasion = []string{"date night"}
	db.Save(dress)
	test.FakeClothingItem(db, other, "Foreign tee", models.CategoryTShirt, "White")

	list := func(query string) []models.ClothingItem {
		rec := serve(s.e, test.NewJSONAuthRequest("GET", "/api/clothes"+query, UIntToStr(user.ID), nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var response struct {
			Items []models.ClothingItem `json:"items"`
			Total int                   `json:"total"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		require.Equal(t, len(response.Items), response.Total)
		return response.Items
	}

	all := list("")
	require.Len(t, all, 3)
	assert.Equal(t, dress.ID, all[0].ID)
	assert.Equal(t, tee.ID, all[2].ID)

	byColor := list("?color=Blue")
	assert.Len(t, byColor, 2)

	byCategoryAndColor := list("?color=Blue&category=Jeans")
	require.Len(t, byCategoryAndColor, 1)
	assert.Equal(t, jeans.ID, byCategoryAndColor[0].ID)

	bySeason := list("?season=Winter")
	require.Len(t, bySeason, 1)
	assert.Equal(t, jeans.ID, bySeason[0].ID)

	byOccasion := list("?occasion=date%20night")
	require.Len(t, byOccasion, 1)
	assert.Equal(t, dress.ID, byOccasion[0].ID)

	byBrand := list("?search=levi")
	require.Len(t, byBrand, 1)
	assert.Equal(t, jeans.ID, byBrand[0].ID)

	byPercent := list("?search=100%25")
	require.Len(t, byPercent, 1)
	assert.Equal(t, tee.ID, byPercent[0].ID)

	underscore := list("?search=_")
	assert.Len(t, underscore, 0)

	assert.Len(t, list("?search="), 3)
	assert.Len(t, list("?search=%20%20"), 3)
	assert.Len(t, list("?search=&color=Blue"), 2)
}

func TestGetClothingOwnership(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	s := newTestServer(t, db)
	user := test.FakeUser(db, "")
	other := test.FakeUser(db, "other@example.com")
	item := test.FakeClothingItem(db, user, "Oxford shirt", models.CategoryShirt, "White")

	rec := serve(s.e, test.NewJSONAuthRequest("GET", fmt.Sprintf("/api/clothes/%d", item.ID), UIntToStr(user.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var response itemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, item.ID, response.Item.ID)

	rec = serve(s.e, test.NewJSONAuthRequest("GET", fmt.Sprintf("/api/clothes/%d", item.ID), UIntToStr(other.ID), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error": "Item not found"}`, rec.Body.String())

	rec = serve(s.e, test.NewJSONAuthRequest("GET", "/api/clothes/abc", UIntToStr(user.ID), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateClothingPartial(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	s := newTestServer(t, db)
	user := test.FakeUser(db, "")
	item := test.FakeClothingItem(db, user, "Chinos", models.CategoryPants, "Beige")
	item.Season = []string{"Spring", "Summer"}
	item.Brand = test.NewRefString("Dockers")
	db.Save(item)

	reqBody := echo.Map{"color": "navy", "season": []string{"winter"}, "brand": ""}
	rec := serve(s.e, test.NewJSONAuthRequest("PUT", fmt.Sprintf("/api/clothes/%d", item.ID), UIntToStr(user.ID), reqBody))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var response itemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "Item updated successfully", response.Message)
	assert.Equal(t, "Chinos", response.Item.Name)
	assert.Equal(t, "Navy", response.Item.Color)
	assert.Equal(t, []string{"Winter"}, []string(response.Item.Season))
	assert.Nil(t, response.Item.Brand)
	assert.Equal(t, models.CategoryPants, response.Item.Category)

	rec = serve(s.e, test.NewJSONAuthRequest("PUT", fmt.Sprintf("/api/clothes/%d", item.ID), UIntToStr(user.ID), echo.Map{"name": ""}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateClothingReplacesUploadedImage(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	s := newTestServer(t, db)
	user := test.FakeUser(db, "")
	item := test.FakeClothingItem(db, user, "Boots", models.CategoryShoes, "Brown")
	oldKey := fmt.Sprintf("clothes/%d/old.jpg", user.ID)
	item.ImageKey = &oldKey
	db.Save(item)

	reqBody := echo.Map{"image": test.PixelDataURL}
	rec := serve(s.e, test.NewJSONAuthRequest("PUT", fmt.Sprintf("/api/clothes/%d", item.ID), UIntToStr(user.ID), reqBody))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stored models.ClothingItem
	require.NoError(t, db.First(&stored, item.ID).Error)
	assert.Nil(t, stored.ImageKey)
	require.NotNil(t, stored.Image)
	assert.Equal(t, []string{oldKey}, s.aws.Deleted)
}

func TestUpdateClothingRejectsNonImageUpload(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	s := newTestServer(t, db)
	user := test.FakeUser(db, "")
	item := test.FakeClothingItem(db, user, "Boots", models.CategoryShoes, "Brown")
	oldKey := fmt.Sprintf("clothes/%d/old.jpg", user.ID)
	item.ImageKey = &oldKey
	db.Save(item)

	req := newMultipartAuthRequest(t, "PUT", fmt.Sprintf("/api/clothes/%d", item.ID), UIntToStr(user.ID), nil, []byte("%PDF-1.4 not an image"))
	rec := serve(s.e, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "Invalid image data"}`, rec.Body.String())
	assert.Empty(t, s.aws.Uploaded)
	assert.Empty(t, s.aws.Deleted)

	var stored models.ClothingItem
	require.NoError(t, db.First(&stored, item.ID).Error)
	require.NotNil(t, stored.ImageKey)
	assert.Equal(t, oldKey, *stored.ImageKey)
}

func TestDeleteClothing(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	s := newTestServer(t, db)
	user := test.FakeUser(db, "")
	item := test.FakeClothingItem(db, user, "Scarf", models.CategoryAccessories, "Red")
	key := "clothes/scarf.jpg"
	item.ImageKey = &key
	db.Save(item)

	rec := serve(s.e, test.NewJSONAuthRequest("DELETE", fmt.Sprintf("/api/clothes/%d", item.ID), UIntToStr(user.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message": "Item deleted successfully"}`, rec.Body.String())
	assert.Equal(t, []string{key}, s.aws.Deleted)

	var count int64
	db.Model(&models.ClothingItem{}).Where("id = ?", item.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	rec = serve(s.e, test.NewJSONAuthRequest("DELETE", fmt.Sprintf("/api/clothes/%d", item.ID), UIntToStr(user.ID), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeClothingQueuesTask(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	s := newTestServer(t, db)
	user := test.FakeUser(db, "")
	item := test.FakeClothingItem(db, user, "Hoodie", models.CategoryJacket, "Gray")

	rec := serve(s.e, test.NewJSONAuthRequest("POST", fmt.Sprintf("/api/clothes/%d/analyze", item.ID), UIntToStr(user.ID), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	item.Image = test.NewRefString(test.PixelDataURL)
	db.Save(item)
	rec = serve(s.e, test.NewJSONAuthRequest("POST", fmt.Sprintf("/api/clothes/%d/analyze", item.ID), UIntToStr(user.ID), nil))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message": "Analysis started", "status": "pending"}`, rec.Body.String())
	assert.Equal(t, []string{tasks.TypeClothingAnalyze}, s.enqueuer.TaskTypes())

	var payload tasks.ClothingAnalysisPayload
	require.NoError(t, json.Unmarshal(s.enqueuer.Tasks[0].Payload(), &payload))
	assert.Equal(t, item.ID, payload.ClothingID)

	var stored models.ClothingItem
	require.NoError(t, db.First(&stored, item.ID).Error)
	assert.Equal(t, tasks.AnalysisStatusPending, stored.AnalysisStatus)
}

func TestAnalyzeClothingQueueDown(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	s := newTestServer(t, db)
	s.enqueuer.Err = errors.New("redis unavailable")
	user := test.FakeUser(db, "")
	item := test.FakeClothingItem(db, user, "Hoodie", models.CategoryJacket, "Gray")
	item.Image = test.NewRefString(test.PixelDataURL)
	db.Save(item)

	rec := serve(s.e, test.NewJSONAuthRequest("POST", fmt.Sprintf("/api/clothes/%d/analyze", item.ID), UIntToStr(user.ID), nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, s.enqueuer.TaskTypes())

	var stored models.ClothingItem
	require.NoError(t, db.First(&stored, item.ID).Error)
	assert.Equal(t, tasks.AnalysisStatusIdle, stored.AnalysisStatus)
}
