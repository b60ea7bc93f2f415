package test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"time"
	"wardrobeapi/models"
	"wardrobeapi/services"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/idtoken"
	"gorm.io/gorm"
)

const FakePassword = "password123"

// 1x1 transparent png
const PixelDataURL = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {

	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func GenerateUserToken(userPk string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userPk,
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	t, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		log.Fatalf("Error when signing user token for %s. Error %s ", userPk, err)
	}
	return t
}

func NewJSONAuthRequest(method string, target string, userPk string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	token := GenerateUserToken(userPk)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	return req
}

func NewJSONAuthRequestCustomAuth(method string, target string, authorizationString string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", authorizationString)
	return req
}

func NewJSONAuthRequestRaw(method string, target string, userPk string, json string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(json))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	token := GenerateUserToken(userPk)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	return req
}

func NewRefString(data string) *string {
	return &data
}

// FakeUser creates an account with FakePassword and one active android push token.
func FakeUser(db *gorm.DB, email string) *models.UserAccount {
	if email == "" {
		email = "email@example.com"
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte(FakePassword), bcrypt.MinCost)
	user := &models.UserAccount{
		Name:      "OurName",
		Email:     email,
		Password:  string(hash),
		GoogleID:  "12232",
		Platform:  models.PlatformIOS,
		LastIp:    "123.122.122.122",
		AvatarURL: "pictureurl",
	}
	db.Create(&user)

	tokenDb := models.UserPushToken{
		UserAccountID: user.ID,
		Platform:      models.PlatformAndroid,
		Token:         "cX-UZ3zwQEiPt-2GJkG2gA:APA91bGqRflaGrJrnynhRwZ442HdgUjVcO7mWMFnx6IwAdJ9RRKopvSP4QU7hbvTmk1XAp8XGvtHZLvo5JmOPTVKBbGqqvhfbZWKlXA9csEjx1hgpNvrWepU-rqG1sxS8_WCF5cGZchf",
		Active:        true,
	}
	db.Save(&tokenDb)
	return user
}

func FakeClothingItem(db *gorm.DB, owner *models.UserAccount, name string, category models.Category, color string) *models.ClothingItem {
	item := &models.ClothingItem{
		OwnerID:        owner.ID,
		Name:           name,
		Category:       category,
		Color:          color,
		Pattern:        models.DefaultPattern,
		Season:         []string{},
		Occasion:       []string{},
		Features:       []string{},
		AnalysisStatus: "idle",
	}
	db.Create(item)
	return item
}

type GoogleServiceMock struct{}

func (gsm GoogleServiceMock) ValidateIdToken(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error) {
	if idToken == "invalid" {
		return nil, errors.New("idtoken: invalid token")
	}
	return &idtoken.Payload{Issuer: "Issue", Audience: "AAA", Expires: 119919191919, IssuedAt: 12312321321, Subject: "fake@example.com", Claims: map[string]interface{}{
		"email":   "fake@example.com",
		"picture": "pictureurl",
		"sub":     "123googleid",
		"name":    "Google Name",
	}}, nil
}

type AWSProviderMock struct {
	MockUrl string
	mu       sync.Mutex
	Deleted  []string
	Uploaded []string
}

func (awsService *AWSProviderMock) InitPresignClient(ctx context.Context) error {
	return nil
}

func (awsService *AWSProviderMock) PresignLink(ctx context.Context, bucketName string, fileName string) (string, error) {
	return fmt.Sprintf("https://fakebucketurl.com/%s", fileName), nil
}

func (awsService *AWSProviderMock) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	if awsService.MockUrl != "" {
		return awsService.MockUrl, nil
	}
	return fmt.Sprintf("https://fakebucketurl.com/%s?signed=1", fileKey), nil
}

func (awsService *AWSProviderMock) UploadToPresignedURL(ctx context.Context, bucketName, url string, fileContent []byte) (string, int, error) {
	awsService.mu.Lock()
	defer awsService.mu.Unlock()
	awsService.Uploaded = append(awsService.Uploaded, url)
	return url, 204, nil
}

func (awsService *AWSProviderMock) DeleteObject(ctx context.Context, bucketName, fileKey string) error {
	awsService.mu.Lock()
	defer awsService.mu.Unlock()
	awsService.Deleted = append(awsService.Deleted, fileKey)
	return nil
}

// URLCacheMock signs through the AWS mock without caching.
type URLCacheMock struct {
	AWSService services.AWSServiceProvider
}

func (m URLCacheMock) GetReadURL(ctx context.Context, objectKey string) (string, error) {
	return m.AWSService.GetPresignedR2FileReadURL(ctx, "", objectKey)
}

func (m URLCacheMock) Invalidate(ctx context.Context, objectKey string) error {
	return nil
}

// LLMProcessorMock answers every request with Response and Images and records what it was asked.
type LLMProcessorMock struct {
	ConfiguredValue bool
	Response        string
	Images          []services.InlineImage
	Err             error

	mu       sync.Mutex
	Requests []services.LLMRequest
	Models   []services.LLMModelName
}

func (m *LLMProcessorMock) Configured() bool {
	return m.ConfiguredValue
}

func (m *LLMProcessorMock) Generate(ctx context.Context, request services.LLMRequest, modelName services.LLMModelName) (*services.LLMResponse, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, request)
	m.Models = append(m.Models, modelName)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return &services.LLMResponse{
		Response:           m.Response,
		Images:             m.Images,
		InputTokenCount:    10,
		TotalTokenCount:    11,
		ThoughtsTokenCount: 12,
		OutputTokenCount:   13,
	}, nil
}

type AnalyzerMock struct {
	Result services.AnalysisResult
	Calls  int
}

func (m *AnalyzerMock) Analyze(ctx context.Context, image services.InlineImage) services.AnalysisResult {
	m.Calls++
	return m.Result
}

// EnqueuerMock records enqueued tasks instead of talking to redis.
type EnqueuerMock struct {
	Err   error
	mu    sync.Mutex
	Tasks []*asynq.Task
}

func (m *EnqueuerMock) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tasks = append(m.Tasks, task)
	return &asynq.TaskInfo{ID: uuid.NewString(), Type: task.Type(), Payload: task.Payload()}, nil
}

func (m *EnqueuerMock) TaskTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := []string{}
	for _, task := range m.Tasks {
		types = append(types, task.Type())
	}
	return types
}
