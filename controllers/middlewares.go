package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"wardrobeapi/models"
	"wardrobeapi/services"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// UserMiddleware resolves the account behind a verified access token.
func UserMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		db := c.Get("__db").(*gorm.DB)
		userRaw := c.Get("user")
		if userRaw == nil {
			return echo.ErrUnauthorized
		}
		user := userRaw.(*jwt.Token)
		claims := user.Claims.(jwt.MapClaims)
		userId, _ := claims["sub"].(string)
		if userId == "" {
			log.Println("Error while getting the token information!")
			return echo.ErrUnauthorized
		}
		if tokenType, _ := claims["typ"].(string); tokenType == refreshTokenType {
			return echo.ErrUnauthorized
		}
		if blocklist, ok := c.Get("__blocklist").(services.TokenBlocklistProvider); ok && blocklist != nil {
			jti, _ := claims["jti"].(string)
			if blocklist.IsRevoked(c.Request().Context(), jti) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token has been revoked")
			}
		}

		var currentUser models.UserAccount
		result := db.Where("id = ?", userId).Take(&currentUser)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return echo.ErrUnauthorized
		}
		if result.Error != nil {
			fmt.Println("Failed to fetch user", result.Error)
			return echo.ErrInternalServerError
		}
		if currentUser.Banned {
			return echo.ErrForbidden
		}
		c.Set("currentUser", currentUser)
		return next(c)
	}
}
