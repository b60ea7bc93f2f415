package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"reflect"
	"wardrobeapi/models"
	"wardrobeapi/services"
	"wardrobeapi/tasks"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

type CustomValidator struct {
	validator *validator.Validate
}

// Validate returns the raw validator errors so handlers can report them per field.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return jsonTagName(field.Tag.Get("json"), field.Name)
	})
	models.RegisterValidations(v)
	return &CustomValidator{validator: v}
}

// errorHandler keeps every error body in the {"error": ...} shape.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	message := "Server error"
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		message = fmt.Sprint(httpErr.Message)
		if httpErr.Internal != nil && code >= http.StatusInternalServerError {
			sentry.CaptureException(httpErr.Internal)
		}
	} else {
		fmt.Printf("[Server] Unhandled error on %s: %v\n", c.Path(), err)
		sentry.CaptureException(err)
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]string{"error": message})
	}
	if err != nil {
		log.Println(err)
	}
}

func SetupServer(
	db *gorm.DB,
	googleService services.GoogleServiceProvider,
	awsService services.AWSServiceProvider,
	firebaseApp *firebase.App,
	enqueuer tasks.Enqueuer,
	urlCache services.URLCacheServiceProvider,
	llm services.LLMProcessor,
	blocklist services.TokenBlocklistProvider,
) *echo.Echo {

	err := awsService.InitPresignClient(context.Background())
	if err != nil {
		log.Fatal("Failed to initialize AWS provider: S3 ", err)
	}
	images := services.NewClothingImages(awsService, urlCache)
	analyzer := services.ClothingAnalysisService{LLM: llm}

	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = errorHandler
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__db", db)
			c.Set("__asynqclient", enqueuer)
			c.Set("__blocklist", blocklist)
			return next(c)
		}
	})
	e.Use(middleware.BodyLimit("50M"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api := e.Group("/api")
	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "OK", "message": "Server is running"})
	})

	authController := AuthController{Google: googleService, FirebaseApp: firebaseApp}
	authController.AuthRoutes(api.Group("/auth"))

	userGroup := api.Group("", echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))), UserMiddleware)

	clothesController := ClothesController{Images: images}
	clothesController.ClothingRoutes(userGroup.Group("/clothes"))

	outfitsController := OutfitsController{
		Images:    images,
		Assembler: services.NewOutfitAssembler(nil),
		Advisor:   services.OutfitAdvisor{LLM: llm},
	}
	outfitsController.OutfitRoutes(userGroup.Group("/outfits"))

	analysisController := AnalysisController{Analyzer: analyzer}
	analysisController.AnalysisRoutes(userGroup.Group("/analysis"))

	tryOnController := TryOnController{Images: images, Generator: services.TryOnService{LLM: llm}}
	tryOnController.TryOnRoutes(userGroup.Group("/try-on"))

	publicController := PublicController{Analyzer: analyzer}
	publicController.PublicRoutes(api.Group("/public"))

	return e
}
