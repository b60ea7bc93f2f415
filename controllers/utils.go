package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	accessTokenHours = 72
	refreshTokenType = "refresh"
)

func UIntToStr(value uint) string {
	return strconv.FormatUint(uint64(value), 10)
}

// GenerateUserToken signs an access token. Every token carries its own jti so that it can be
// revoked on logout.
func GenerateUserToken(userPk string, c echo.Context, hours uint64) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userPk,
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * time.Duration(hours))),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	t, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		c.Logger().Errorf("Error when signing user token for %s. Error %s ", userPk, err)
	}
	return t
}

func GenerateRefreshToken(userPk string) (string, error) {
	refreshToken := jwt.New(jwt.SigningMethodHS256)
	rtClaims := refreshToken.Claims.(jwt.MapClaims)
	rtClaims["sub"] = userPk
	rtClaims["typ"] = refreshTokenType
	rtClaims["jti"] = uuid.NewString()
	rtClaims["exp"] = time.Now().Add(time.Hour * 24 * 30 * 12).Unix()
	rt, err := refreshToken.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		return "", err
	}
	return rt, nil
}

func parseSignedToken(raw string) (*jwt.Token, error) {
	return jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("Unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Please provide a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "season", "occasion", "features":
		return fmt.Sprintf("%s must be a list of allowed values", fe.Field())
	}
	return fmt.Sprintf("Invalid %s", fe.Field())
}

// ValidationError answers 400 with one message per failed field.
func ValidationError(c echo.Context, err error) error {
	fields := map[string]string{}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fe := range validationErrors {
			fields[fe.Field()] = validationMessage(fe)
		}
	}
	message := "Validation failed"
	if len(fields) == 0 {
		message = err.Error()
	}
	return c.JSON(http.StatusBadRequest, map[string]interface{}{
		"error":  message,
		"fields": fields,
	})
}

func jsonTagName(tag string, fallback string) string {
	name := strings.SplitN(tag, ",", 2)[0]
	if name == "-" || name == "" {
		return fallback
	}
	return name
}
