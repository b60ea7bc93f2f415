package services

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"wardrobeapi/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/getsentry/sentry-go"
	"github.com/golang-jwt/jwt"
	"google.golang.org/api/idtoken"
	"gorm.io/gorm"
)

type GoogleServiceProvider interface {
	ValidateIdToken(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

type GoogleService struct {
}

func (gs GoogleService) ValidateIdToken(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error) {
	return idtoken.Validate(ctx, idToken, audience)
}

func stringMapToInterfaceMap(stringMap map[string]string) map[string]interface{} {
	interfaceMap := make(map[string]interface{})
	for key, value := range stringMap {
		interfaceMap[key] = value
	}
	return interfaceMap
}

// ActivePushTokens lists the tokens a notification for the user should go to. Users who turned
// notifications off get none.
func ActivePushTokens(db *gorm.DB, userId uint) ([]models.UserPushToken, error) {
	var tokens []models.UserPushToken
	result := db.Model(&models.UserPushToken{}).
		Joins("JOIN user_accounts ON user_accounts.id = user_push_tokens.user_account_id").
		Where("user_push_tokens.user_account_id = ? AND user_push_tokens.active = true", userId).
		Where("user_accounts.receive_notifications = true").
		Find(&tokens)
	return tokens, result.Error
}

// SendNotification pushes to every active token of the user. Android goes through FCM,
// iOS straight to APNS.
func SendNotification(ctx context.Context, fbApp *firebase.App, db *gorm.DB, userId uint, title string, message string, customData map[string]string) {
	tokens, err := ActivePushTokens(db, userId)
	if err != nil {
		fmt.Println("[Push] Error loading push tokens", err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	var androidMessages []*messaging.Message
	var iOSMessages []*messaging.Message
	var iosCustomData map[string]interface{}
	if customData != nil {
		iosCustomData = stringMapToInterfaceMap(customData)
	}
	for _, token := range tokens {
		pushMessage := &messaging.Message{
			Notification: &messaging.Notification{
				Title: title,
				Body:  message,
			},
			APNS: &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{
						ContentAvailable: true,
						Alert: &messaging.ApsAlert{
							Title: title,
							Body:  message,
						},
						Sound: "default",
					},
					CustomData: iosCustomData,
				},
			},
			Android: &messaging.AndroidConfig{
				Notification: &messaging.AndroidNotification{
					Priority:  messaging.AndroidNotificationPriority(messaging.PriorityMax),
					ChannelID: "wardrobe-analysis",
				},
				Data: customData,
			},
			Token: token.Token,
		}
		if token.Platform == models.PlatformIOS {
			iOSMessages = append(iOSMessages, pushMessage)
		} else {
			androidMessages = append(androidMessages, pushMessage)
		}
	}

	if len(androidMessages) > 0 && fbApp != nil {
		client, err := fbApp.Messaging(ctx)
		if err != nil {
			fmt.Println("[Push] Error initing FB client", err)
			sentry.CaptureException(err)
		} else {
			br, err := client.SendEach(ctx, androidMessages)
			if err != nil {
				fmt.Println("[Push] FCM send failed", err)
				sentry.CaptureException(err)
			} else {
				fmt.Println("[Push] FCM failures: ", br.FailureCount)
			}
		}
	}
	if len(iOSMessages) > 0 {
		errs := sendIOSNotificationDirect(ctx, iOSMessages)
		if len(errs) > 0 {
			fmt.Println("[Push] iOS failures: ", len(errs))
			for _, err := range errs {
				fmt.Println(err)
			}
		}
	}
}

func apnsProviderToken() (string, error) {
	teamID := GetEnv("APPLE_PUSH_TEAM_ID", "")
	keyID := GetEnv("APPLE_PUSH_KEY_ID", "")
	privateKeyPEM, err := DecodeBase64EnvPrivateKey("APPLE_PUSH_KEY_BASE64")
	if err != nil {
		return "", err
	}

	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return "", errors.New("APPLE_PUSH_KEY_BASE64 is not a PEM key")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("parse apns key: %w", err)
	}
	privateKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return "", errors.New("apns key is not an ECDSA key")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": teamID,
		"iat": time.Now().Unix(),
	})
	token.Header["kid"] = keyID
	return token.SignedString(privateKey)
}

func sendIOSNotificationDirect(ctx context.Context, messages []*messaging.Message) []error {
	bundleID := GetEnv("APPLE_BUNDLE_ID", "")
	jwtToken, err := apnsProviderToken()
	if err != nil {
		fmt.Println("[Push] Error signing APNS token:", err)
		return []error{err}
	}

	client := &http.Client{Timeout: 10 * time.Second}
	errs := []error{}
	for _, message := range messages {
		alert := message.APNS.Payload.Aps.Alert
		payload := map[string]interface{}{
			"aps": map[string]interface{}{
				"alert": map[string]string{
					"title": alert.Title,
					"body":  alert.Body,
				},
			},
		}
		for key, value := range message.APNS.Payload.CustomData {
			payload[key] = value
		}

		payloadBytes, _ := json.Marshal(payload)
		url := fmt.Sprintf("https://api.push.apple.com/3/device/%s", message.Token)
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		req.Header.Set("Authorization", "Bearer "+jwtToken)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("apns-topic", bundleID)

		resp, err := client.Do(req)
		if err != nil {
			errs = append(errs, err)
			sentry.CaptureMessage(fmt.Sprintf("Error sending push %s %s", message.Token, alert.Title))
			continue
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			errs = append(errs, fmt.Errorf("apns %d for %s: %s", resp.StatusCode, message.Token, string(body)))
		}
	}
	return errs
}
