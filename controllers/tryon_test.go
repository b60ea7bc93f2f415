package controllers

import (
	"encoding/json"
	"net/http"
	"testing"

	"wardrobeapi/dbhelper"
	"wardrobeapi/models"
	"wardrobeapi/services"
	"wardrobeapi/test"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryOnValidation(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	s := newTestServer(t, db)
	user := test.FakeUser(db, "")
	other := test.FakeUser(db, "other@example.com")
	foreign := test.FakeClothingItem(db, other, "Foreign", models.CategoryShirt, "Red")
	plain := test.FakeClothingItem(db, user, "No photo", models.CategoryShirt, "Red")

	rec := serve(s.e, test.NewJSONAuthRequest("POST", "/api/try-on/generate", UIntToStr(user.ID), echo.Map{"clothingIds": []uint{plain.ID}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "User image is required"}`, rec.Body.String())

	rec = serve(s.e, test.NewJSONAuthRequest("POST", "/api/try-on/generate", UIntToStr(user.ID), echo.Map{"userImage": test.PixelDataURL}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "At least one clothing item must be selected"}`, rec.Body.String())

	for _, userImage := range []string{"data:image/png;base64,@@@", "data:text/plain;base64,aGVsbG8="} {
		rec = serve(s.e, test.NewJSONAuthRequest("POST", "/api/try-on/generate", UIntToStr(user.ID), echo.Map{
			"userImage":   userImage,
			"clothingIds": []uint{foreign.ID},
		}))
		assert.Equal(t, http.StatusBadRequest, rec.Code, userImage)
		assert.JSONEq(t, `{"error": "Invalid user image"}`, rec.Body.String())
	}

	rec = serve(s.e, test.NewJSONAuthRequest("POST", "/api/try-on/generate", UIntToStr(user.ID), echo.Map{
		"userImage":   test.PixelDataURL,
		"clothingIds": []uint{foreign.ID},
	}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error": "No valid clothing items found"}`, rec.Body.String())

	rec = serve(s.e, test.NewJSONAuthRequest("POST", "/api/try-on/generate", UIntToStr(user.ID), echo.Map{
		"userImage":   test.PixelDataURL,
		"clothingIds": []uint{plain.ID},
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "Selected items have no usable images"}`, rec.Body.String())
	assert.Empty(t, s.llm.Requests)
}

func TestTryOnGenerate(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	s := newTestServer(t, db)
	user := test.FakeUser(db, "")

	jacket := test.FakeClothingItem(db, user, "Jacket", models.CategoryJacket, "Black")
	jacket.Image = test.NewRefString("data:image/gif;base64,R0lGODlhAQABAAAAACw=")
	db.Save(jacket)
	shirt := test.FakeClothingItem(db, user, "Shirt", models.CategoryShirt, "White")
	shirt.Image = test.NewRefString(test.PixelDataURL)
	db.Save(shirt)

	s.llm.ConfiguredValue = true
	s.llm.Images = []services.InlineImage{{MIMEType: "image/png", Data: []byte("generated")}}

	rec := serve(s.e, test.NewJSONAuthRequest("POST", "/api/try-on/generate", UIntToStr(user.ID), echo.Map{
		"userImage":   test.PixelDataURL,
		"clothingIds": []uint{shirt.ID, jacket.ID, 999999},
		"prompt":      "tuck the shirt",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool   `json:"success"`
		Image   string `json:"image"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, services.EncodeDataURL(services.InlineImage{MIMEType: "image/png", Data: []byte("generated")}), resp.Image)

	require.Len(t, s.llm.Requests, 1)
	request := s.llm.Requests[0]
	require.Len(t, request.Images, 3)
	assert.Equal(t, "image/png", request.Images[0].MIMEType)
	assert.Equal(t, "image/png", request.Images[1].MIMEType)
	assert.Equal(t, "image/gif", request.Images[2].MIMEType)
	assert.Contains(t, request.Prompt, "Additional instructions: tuck the shirt")
	assert.Equal(t, services.Flash25Image, s.llm.Models[0])
}

func TestTryOnNoImageGenerated(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	s := newTestServer(t, db)
	user := test.FakeUser(db, "")
	shirt := test.FakeClothingItem(db, user, "Shirt", models.CategoryShirt, "White")
	shirt.Image = test.NewRefString(test.PixelDataURL)
	db.Save(shirt)

	s.llm.ConfiguredValue = true
	s.llm.Response = "I cannot edit this photo"

	rec := serve(s.e, test.NewJSONAuthRequest("POST", "/api/try-on/generate", UIntToStr(user.ID), echo.Map{
		"userImage":   test.PixelDataURL,
		"clothingIds": []uint{shirt.ID},
	}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success": false, "error": "No image was generated"}`, rec.Body.String())
}
