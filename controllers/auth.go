package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
	"wardrobeapi/models"
	"wardrobeapi/services"

	firebase "firebase.google.com/go/v4"
	apple "github.com/Timothylock/go-signin-with-apple/apple"
	"github.com/getsentry/sentry-go"
	"github.com/golang-jwt/jwt/v4"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthController struct {
	Google      services.GoogleServiceProvider
	FirebaseApp *firebase.App
}

func (m *AuthController) AuthRoutes(g *echo.Group) {
	g.POST("/register", m.Register)
	g.POST("/login", m.Login)
	g.POST("/refresh-token", m.RefreshToken)
	g.POST("/google", m.GoogleSignIn)
	g.POST("/apple", m.AppleSignIn)

	g.GET("/me", m.Me, echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))), UserMiddleware)
	g.POST("/logout", m.Logout, echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))), UserMiddleware)
	g.POST("/register-push", m.RegisterPush, echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))), UserMiddleware)
	g.POST("/delete-push", m.DeletePush, echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))), UserMiddleware)
}

func authResponse(c echo.Context, status int, user models.UserAccount) error {
	refreshToken, err := GenerateRefreshToken(UIntToStr(user.ID))
	if err != nil {
		fmt.Printf("[Auth] user %v refresh token signing failed: %v\n", user.ID, err)
		return echo.ErrInternalServerError
	}
	return c.JSON(status, models.AuthOut{
		Token:        GenerateUserToken(UIntToStr(user.ID), c, accessTokenHours),
		RefreshToken: refreshToken,
		User:         user.Out(),
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (m *AuthController) Register(c echo.Context) error {
	var req models.RegisterIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return ValidationError(c, err)
	}
	db := c.Get("__db").(*gorm.DB)
	email := normalizeEmail(req.Email)

	var existing int64
	if err := db.Model(&models.UserAccount{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}
	if existing > 0 {
		return c.JSON(http.StatusConflict, map[string]string{"error": "User already exists"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}
	user := models.UserAccount{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: string(hash),
		LastIp:   c.RealIP(),
	}
	if err := db.Create(&user).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}
	fmt.Printf("[Auth: %v] Registered %s\n", user.ID, user.Email)
	return authResponse(c, http.StatusCreated, user)
}

func (m *AuthController) Login(c echo.Context) error {
	var req models.LoginIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return ValidationError(c, err)
	}
	db := c.Get("__db").(*gorm.DB)

	var user models.UserAccount
	r := db.Where("email = ?", normalizeEmail(req.Email)).Limit(1).Find(&user)
	if r.Error != nil {
		sentry.CaptureException(r.Error)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}
	// accounts created through Google or Apple have no password
	if r.RowsAffected == 0 || user.Password == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	}
	if user.Banned {
		return echo.ErrForbidden
	}
	user.LastIp = c.RealIP()
	db.Model(&user).Update("last_ip", user.LastIp)
	return authResponse(c, http.StatusOK, user)
}

func (m *AuthController) Me(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	return c.JSON(http.StatusOK, echo.Map{"user": user.Out()})
}

func (m *AuthController) Logout(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	token := c.Get("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	jti, _ := claims["jti"].(string)

	expiresAt := time.Now().Add(time.Hour * accessTokenHours)
	if exp, ok := claims["exp"].(float64); ok {
		expiresAt = time.Unix(int64(exp), 0)
	}
	blocklist, ok := c.Get("__blocklist").(services.TokenBlocklistProvider)
	if ok && blocklist != nil {
		if err := blocklist.Revoke(c.Request().Context(), jti, expiresAt); err != nil {
			fmt.Printf("[Auth: %v] Could not revoke token: %v\n", user.ID, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

func (m *AuthController) RefreshToken(c echo.Context) error {
	var req models.RefreshTokenIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return ValidationError(c, err)
	}

	token, err := parseSignedToken(req.RefreshToken)
	if err != nil {
		fmt.Printf("[Auth] bad refresh token: %v\n", err)
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid refresh token"})
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid refresh token"})
	}
	if tokenType, _ := claims["typ"].(string); tokenType != refreshTokenType {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid refresh token"})
	}
	userId, _ := claims["sub"].(string)
	if userId == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid refresh token"})
	}

	db := c.Get("__db").(*gorm.DB)
	var user models.UserAccount
	result := db.Where("id = ?", userId).Take(&user)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		fmt.Println("Requested user not found!", userId)
		return echo.ErrForbidden
	}
	if result.Error != nil {
		fmt.Println("Error getting user while refreshing token", userId)
		sentry.CaptureException(result.Error)
		return echo.ErrInternalServerError
	}
	if user.Banned {
		return echo.ErrForbidden
	}
	return authResponse(c, http.StatusOK, user)
}

func (m *AuthController) GoogleSignIn(c echo.Context) error {
	var req models.GoogleAuthSignIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return ValidationError(c, err)
	}

	payload, err := m.Google.ValidateIdToken(c.Request().Context(), req.IdToken, os.Getenv("GOOGLE_CLIENT_ID"))
	if err != nil {
		fmt.Printf("[Google signin] token validation failed: %v\n", err)
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Couldn't verify credentials"})
	}
	googleId, _ := payload.Claims["sub"].(string)
	googleEmail, _ := payload.Claims["email"].(string)
	if googleId == "" || googleEmail == "" {
		sentry.CaptureMessage(fmt.Sprintf("Error when fetching google user data %s", payload.Claims))
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Couldn't verify credentials"})
	}
	pictureUrl, _ := payload.Claims["picture"].(string)
	googleName, _ := payload.Claims["name"].(string)

	db := c.Get("__db").(*gorm.DB)
	var user models.UserAccount
	r := db.Where("google_id = ? or email = ?", googleId, normalizeEmail(googleEmail)).Order("id").Limit(1).Find(&user)
	if r.Error != nil {
		sentry.CaptureException(r.Error)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}

	status := http.StatusOK
	if r.RowsAffected > 0 {
		if user.Banned {
			return echo.ErrForbidden
		}
		user.GoogleID = googleId
		if user.AvatarURL == "" {
			user.AvatarURL = pictureUrl
		}
		if user.Name == "" {
			user.Name = googleName
		}
	} else {
		user = models.UserAccount{
			Name:      googleName,
			Email:     normalizeEmail(googleEmail),
			GoogleID:  googleId,
			AvatarURL: pictureUrl,
		}
		status = http.StatusCreated
		fmt.Println("[Google signin] New user", googleEmail)
	}
	user.LastIp = c.RealIP()
	user.Platform = models.ScanPlatform(req.Platform)
	if err := db.Save(&user).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}
	return authResponse(c, status, user)
}

func (m *AuthController) AppleSignIn(c echo.Context) error {
	var req models.AppleAuthRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(req); err != nil {
		return ValidationError(c, err)
	}

	teamID := services.GetEnv("APPLE_TEAM_ID", "")
	keyID := services.GetEnv("APPLE_KEY_ID", "")
	clientID := services.GetEnv("APPLE_CLIENT_ID", "")
	secret, err := services.DecodeBase64EnvPrivateKey("APPLE_SIGN_IN_KEY_BASE64")
	if err != nil {
		log.Println("Error getting Apple private key:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}
	secret, err = apple.GenerateClientSecret(secret, teamID, clientID, keyID)
	if err != nil {
		log.Println("Error generating Apple client secret:", err)
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}

	client := apple.New()
	vReq := apple.AppValidationTokenRequest{
		ClientID:     clientID,
		ClientSecret: secret,
		Code:         req.AuthorizationCode,
	}
	var resp apple.ValidationResponse
	if err := client.VerifyAppToken(context.Background(), vReq, &resp); err != nil {
		fmt.Println("error verifying: " + err.Error())
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Couldn't verify credentials"})
	}
	if resp.Error != "" {
		fmt.Printf("apple returned an error: %s - %s\n", resp.Error, resp.ErrorDescription)
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Couldn't verify credentials through Apple"})
	}

	appleId, err := apple.GetUniqueID(resp.IDToken)
	if err != nil {
		fmt.Println("failed to get unique ID: " + err.Error())
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Couldn't get your unique identifier"})
	}
	claim, err := apple.GetClaims(resp.IDToken)
	if err != nil {
		fmt.Println("failed to get claims: " + err.Error())
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Couldn't get your information"})
	}
	appleEmail, _ := (*claim)["email"].(string)
	appleEmail = normalizeEmail(appleEmail)

	db := c.Get("__db").(*gorm.DB)
	var user models.UserAccount
	var r *gorm.DB
	if appleEmail == "" {
		r = db.Where("apple_id = ?", appleId).Limit(1).Find(&user)
	} else {
		r = db.Where("apple_id = ? or email = ?", appleId, appleEmail).Order("id").Limit(1).Find(&user)
	}
	if r.Error != nil {
		sentry.CaptureException(r.Error)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}

	status := http.StatusOK
	if r.RowsAffected > 0 {
		if user.Banned {
			return echo.ErrForbidden
		}
		user.AppleID = appleId
	} else {
		if appleEmail == "" {
			fmt.Println("[Apple signin] New user but no email in claims")
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Apple did not share an email for this account, please try again"})
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			name = appleEmail
		}
		user = models.UserAccount{Name: name, Email: appleEmail, AppleID: appleId}
		status = http.StatusCreated
	}
	user.LastIp = c.RealIP()
	user.Platform = models.ScanPlatform(req.Platform)
	if err := db.Save(&user).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}
	return authResponse(c, status, user)
}

func (m *AuthController) RegisterPush(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	var tokenRequest models.UserPushIn
	if err := c.Bind(&tokenRequest); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(tokenRequest); err != nil {
		return ValidationError(c, err)
	}

	pushData := models.UserPushToken{
		Platform:      models.ScanPlatform(tokenRequest.Platform),
		Token:         tokenRequest.Token,
		UserAccountID: user.ID,
		Active:        true,
	}
	// the same device may be signed in to several accounts
	result := db.Where("token = ? and user_account_id = ?", tokenRequest.Token, user.ID).FirstOrCreate(&pushData)
	if result.Error != nil {
		log.Println(result.Error)
		return echo.ErrInternalServerError
	}
	if !pushData.Active {
		db.Model(&pushData).Update("active", true)
	}
	fmt.Println("Push id ", pushData.ID, " Platform: ", pushData.Platform, "User ID:", pushData.UserAccountID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "registered",
		"push_id": pushData.ID,
	})
}

func (m *AuthController) DeletePush(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	var tokenRequest models.UserPushDeleteIn
	if err := c.Bind(&tokenRequest); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(tokenRequest); err != nil {
		return ValidationError(c, err)
	}

	result := db.Where("token = ? and user_account_id = ?", tokenRequest.Token, user.ID).Delete(&models.UserPushToken{})
	if result.Error != nil {
		log.Println(result.Error)
		return echo.ErrInternalServerError
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "deleted",
		"deleted": result.RowsAffected > 0,
	})
}
