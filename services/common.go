package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
)

var ErrInvalidDataURL = errors.New("invalid data url")

var dataURLRule = regexp.MustCompile(`^data:([\w.+-]+/[\w.+-]+);base64,(.*)$`)

// PublicImageRule is the data URL shape accepted from unauthenticated callers.
var PublicImageRule = regexp.MustCompile(`^data:image/(png|jpg|jpeg|gif|webp);base64,`)

func StrPointer(str string) *string {
	if str == "" {
		return nil
	}
	return &str
}

// ParseDataURL decodes a base64 data URL. A bare base64 payload is taken as image/jpeg.
func ParseDataURL(value string) (InlineImage, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return InlineImage{}, ErrInvalidDataURL
	}
	mimeType := "image/jpeg"
	payload := value
	if strings.HasPrefix(value, "data:") {
		match := dataURLRule.FindStringSubmatch(value)
		if match == nil {
			return InlineImage{}, ErrInvalidDataURL
		}
		mimeType, payload = match[1], match[2]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// some clients strip the padding
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return InlineImage{}, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
		}
	}
	if len(data) == 0 {
		return InlineImage{}, ErrInvalidDataURL
	}
	return InlineImage{MIMEType: mimeType, Data: data}, nil
}

func EncodeDataURL(image InlineImage) string {
	return fmt.Sprintf("data:%s;base64,%s", image.MIMEType, base64.StdEncoding.EncodeToString(image.Data))
}

func ReadFileFromUrl(ctx context.Context, url string) ([]byte, error) {
	httpClient := &http.Client{}
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %v", err)
	}

	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get response: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch file, status code: %d", resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}

	return content, nil
}

func GetEnv(key, fallback string) string {
	value := os.Getenv(key)
	if len(value) == 0 {
		return fallback
	}
	return value
}

func DecodeBase64EnvPrivateKey(envKey string) (string, error) {
	base64Key := os.Getenv(envKey)
	if base64Key == "" {
		return "", fmt.Errorf("%s environment variable is not set", envKey)
	}

	decodedBytes, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 private key: %v", err)
	}

	return string(decodedBytes), nil
}
