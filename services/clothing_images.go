package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"wardrobeapi/models"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
)

var ErrImageUnavailable = errors.New("image unavailable")

// ClothingImages stores item photos in R2 and turns stored references back into links or bytes.
type ClothingImages struct {
	AWSService AWSServiceProvider
	URLCache   URLCacheServiceProvider
	BucketName string
}

func NewClothingImages(awsService AWSServiceProvider, urlCache URLCacheServiceProvider) ClothingImages {
	return ClothingImages{
		AWSService: awsService,
		URLCache:   urlCache,
		BucketName: GetEnv("R2_BUCKET_NAME", ""),
	}
}

// ReadURL resolves an object key through the URL cache and presigns directly when the cache
// itself fails. An empty string means both failed.
func (ci ClothingImages) ReadURL(ctx context.Context, objectKey string) string {
	url, err := ci.URLCache.GetReadURL(ctx, objectKey)
	if err == nil {
		return url
	}
	log.Printf("CACHE WARNING: Cache system failed for key '%s': %v. Triggering manual R2 fallback.", objectKey, err)
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("failure_type", "cache_system")
		scope.SetExtra("objectKey", objectKey)
		sentry.CaptureException(err)
	})

	fallbackUrl, fallbackErr := ci.AWSService.GetPresignedR2FileReadURL(ctx, ci.BucketName, objectKey)
	if fallbackErr != nil {
		log.Printf("CRITICAL: Manual R2 fallback also failed for key '%s': %v", objectKey, fallbackErr)
		sentry.CaptureException(fallbackErr)
		return ""
	}
	return fallbackUrl
}

// PopulateImageURLs fills ImageURL of every item concurrently. Inline data URLs are returned as is.
func (ci ClothingImages) PopulateImageURLs(ctx context.Context, items []models.ClothingItem) {
	var wg sync.WaitGroup
	for i := range items {
		item := &items[i]
		if item.Image != nil && *item.Image != "" {
			item.ImageURL = *item.Image
			continue
		}
		if item.ImageKey == nil || *item.ImageKey == "" {
			continue
		}
		wg.Add(1)
		go func(item *models.ClothingItem) {
			defer wg.Done()
			item.ImageURL = ci.ReadURL(ctx, *item.ImageKey)
		}(item)
	}
	wg.Wait()
}

// Bytes loads the photo of one item.
func (ci ClothingImages) Bytes(ctx context.Context, item models.ClothingItem) (InlineImage, error) {
	if item.Image != nil && *item.Image != "" {
		return ParseDataURL(*item.Image)
	}
	if item.ImageKey == nil || *item.ImageKey == "" {
		return InlineImage{}, ErrImageUnavailable
	}
	url := ci.ReadURL(ctx, *item.ImageKey)
	if url == "" {
		return InlineImage{}, ErrImageUnavailable
	}
	data, err := ReadFileFromUrl(ctx, url)
	if err != nil {
		return InlineImage{}, fmt.Errorf("%w: %v", ErrImageUnavailable, err)
	}
	return InlineImage{MIMEType: DetectImageType(data), Data: data}, nil
}

// AllBytes loads photos concurrently, keeping item order and dropping the ones that fail.
func (ci ClothingImages) AllBytes(ctx context.Context, items []models.ClothingItem) []InlineImage {
	var wg sync.WaitGroup
	resolved := make([]*InlineImage, len(items))
	for i, item := range items {
		wg.Add(1)
		go func(index int, item models.ClothingItem) {
			defer wg.Done()
			image, err := ci.Bytes(ctx, item)
			if err != nil {
				fmt.Printf("[Clothes: %v] image not usable: %v\n", item.ID, err)
				return
			}
			resolved[index] = &image
		}(i, item)
	}
	wg.Wait()

	images := []InlineImage{}
	for _, image := range resolved {
		if image != nil {
			images = append(images, *image)
		}
	}
	return images
}

// Upload normalizes an uploaded photo and puts it into R2 under a fresh key.
func (ci ClothingImages) Upload(ctx context.Context, ownerID uint, data []byte) (string, error) {
	image, err := NormalizeUploadImage(data)
	if err != nil {
		return "", err
	}
	extension := "jpg"
	if image.MIMEType != "image/jpeg" {
		extension = mimeExtension(image.MIMEType)
	}
	objectKey := fmt.Sprintf("clothes/%d/%s.%s", ownerID, uuid.NewString(), extension)

	uploadUrl, err := ci.AWSService.PresignLink(ctx, ci.BucketName, objectKey)
	if err != nil {
		return "", fmt.Errorf("presign upload: %w", err)
	}
	if _, status, err := ci.AWSService.UploadToPresignedURL(ctx, ci.BucketName, uploadUrl, image.Data); err != nil {
		return "", fmt.Errorf("upload %s failed with status %d: %w", objectKey, status, err)
	}
	return objectKey, nil
}

// Delete removes a stored photo. Failures are reported but never returned.
func (ci ClothingImages) Delete(ctx context.Context, objectKey string) {
	if objectKey == "" {
		return
	}
	if err := ci.URLCache.Invalidate(ctx, objectKey); err != nil {
		fmt.Printf("[URLCache] invalidate %s: %v\n", objectKey, err)
	}
	if err := ci.AWSService.DeleteObject(ctx, ci.BucketName, objectKey); err != nil {
		log.Printf("Failed to delete R2 object %s: %v", objectKey, err)
		sentry.CaptureException(err)
	}
}

func mimeExtension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "image/heic":
		return "heic"
	}
	return "bin"
}
