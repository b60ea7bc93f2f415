package services_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wardrobeapi/models"
	"wardrobeapi/services"
	"wardrobeapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodedPNG(t *testing.T, width, height int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newImages() (services.ClothingImages, *test.AWSProviderMock) {
	aws := &test.AWSProviderMock{}
	return services.NewClothingImages(aws, test.URLCacheMock{AWSService: aws}), aws
}

func TestNormalizeUploadImage(t *testing.T) {
	small, err := services.NormalizeUploadImage(encodedPNG(t, 10, 20))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", small.MIMEType)
	decoded, _, err := image.Decode(bytes.NewReader(small.Data))
	require.NoError(t, err)
	assert.Equal(t, 10, decoded.Bounds().Dx())

	large, err := services.NormalizeUploadImage(encodedPNG(t, 3200, 800))
	require.NoError(t, err)
	decoded, _, err = image.Decode(bytes.NewReader(large.Data))
	require.NoError(t, err)
	assert.Equal(t, 1600, decoded.Bounds().Dx())
	assert.Equal(t, 400, decoded.Bounds().Dy())

	heic := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
	passthrough, err := services.NormalizeUploadImage(heic)
	require.NoError(t, err)
	assert.Equal(t, "image/heic", passthrough.MIMEType)
	assert.Equal(t, heic, passthrough.Data)

	_, err = services.NormalizeUploadImage([]byte("hello, this is text"))
	assert.ErrorIs(t, err, services.ErrUnsupportedImage)
}

func TestUploadAndDelete(t *testing.T) {
	images, aws := newImages()
	key, err := images.Upload(context.Background(), 42, encodedPNG(t, 4, 4))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "clothes/42/"), key)
	assert.True(t, strings.HasSuffix(key, ".jpg"), key)

	images.Delete(context.Background(), key)
	images.Delete(context.Background(), "")
	assert.Equal(t, []string{key}, aws.Deleted)
}

func TestPopulateImageURLs(t *testing.T) {
	images, _ := newImages()
	inline := models.ClothingItem{Image: test.NewRefString(test.PixelDataURL)}
	stored := models.ClothingItem{ImageKey: test.NewRefString("clothes/1/a.jpg")}
	none := models.ClothingItem{}

	items := []models.ClothingItem{inline, stored, none}
	images.PopulateImageURLs(context.Background(), items)
	assert.Equal(t, test.PixelDataURL, items[0].ImageURL)
	assert.Equal(t, "https://fakebucketurl.com/clothes/1/a.jpg?signed=1", items[1].ImageURL)
	assert.Equal(t, "", items[2].ImageURL)
}

func TestAllBytesKeepsOrder(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("GIF89a-remote"))
	}))
	defer mockServer.Close()

	aws := &test.AWSProviderMock{MockUrl: mockServer.URL}
	images := services.NewClothingImages(aws, test.URLCacheMock{AWSService: aws})

	remote := models.ClothingItem{ImageKey: test.NewRefString("clothes/1/remote.gif")}
	inline := models.ClothingItem{Image: test.NewRefString(test.PixelDataURL)}
	missing := models.ClothingItem{}

	result := images.AllBytes(context.Background(), []models.ClothingItem{remote, missing, inline})
	require.Len(t, result, 2)
	assert.Equal(t, "image/gif", result[0].MIMEType)
	assert.Equal(t, []byte("GIF89a-remote"), result[0].Data)
	assert.Equal(t, "image/png", result[1].MIMEType)

	_, err := images.Bytes(context.Background(), missing)
	assert.ErrorIs(t, err, services.ErrImageUnavailable)
}

func TestURLCacheService(t *testing.T) {
	aws := &test.AWSProviderMock{MockUrl: "https://r2.example.com/signed"}
	cache, err := services.NewURLCacheService(aws, "bucket")
	require.NoError(t, err)

	url, err := cache.GetReadURL(context.Background(), "clothes/1/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://r2.example.com/signed", url)
	assert.NoError(t, cache.Invalidate(context.Background(), "clothes/1/a.jpg"))
}
