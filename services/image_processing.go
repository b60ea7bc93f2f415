package services

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/png"
	"net/http"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const maxImageDimension = 1600

var ErrUnsupportedImage = errors.New("unsupported image")

// NormalizeUploadImage scales an upload down to fit maxImageDimension and re-encodes it as JPEG.
// Image types the decoder does not know (HEIC) are passed through untouched, anything else is
// rejected with ErrUnsupportedImage.
func NormalizeUploadImage(data []byte) (InlineImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		mimeType := DetectImageType(data)
		if !allowedUploadMimeTypes[mimeType] {
			return InlineImage{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, mimeType)
		}
		fmt.Printf("[Image] Cannot decode %s upload, storing original: %v\n", mimeType, err)
		return InlineImage{MIMEType: mimeType, Data: data}, nil
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxImageDimension || bounds.Dy() > maxImageDimension {
		img = imaging.Fit(img, maxImageDimension, maxImageDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return InlineImage{}, fmt.Errorf("failed to encode %s upload to jpeg: %w", format, err)
	}
	return InlineImage{MIMEType: "image/jpeg", Data: buf.Bytes()}, nil
}

// DetectImageType sniffs the MIME type, recognising the HEIC brands http.DetectContentType misses.
func DetectImageType(data []byte) string {
	if len(data) >= 12 && string(data[4:8]) == "ftyp" {
		switch string(data[8:12]) {
		case "heic", "heix", "mif1", "msf1":
			return "image/heic"
		}
	}
	return http.DetectContentType(data)
}
