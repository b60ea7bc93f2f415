package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"wardrobeapi/models"
	"wardrobeapi/services"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	TypeClothingAnalyze            = "clothing:analyze"
	TypeRequeueFailedAnalysis      = "clothing:requeue_failed_analysis"
	AnalysisQueue                  = "analysis"
	MaxAnalysisRetries             = 3
	AnalysisStatusIdle             = "idle"
	AnalysisStatusPending          = "pending"
	AnalysisStatusCompleted        = "completed"
	AnalysisStatusFailed           = "failed"
	analysisUnavailableMessage     = "AI analysis not available"
	analysisImageUnavailableReason = "Item has no usable image"
)

// Enqueuer is the part of *asynq.Client the API and scheduler need.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type ClothingAnalysisPayload struct {
	ClothingID uint `json:"clothing_id"`
}

func NewClothingAnalysisTask(clothingID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(ClothingAnalysisPayload{ClothingID: clothingID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeClothingAnalyze, payload), nil
}

func NewRequeueFailedAnalysisTask() *asynq.Task {
	return asynq.NewTask(TypeRequeueFailedAnalysis, []byte{})
}

// EnqueueClothingAnalysis submits background tagging of one item.
func EnqueueClothingAnalysis(client Enqueuer, clothingID uint) error {
	task, err := NewClothingAnalysisTask(clothingID)
	if err != nil {
		return err
	}
	info, err := client.Enqueue(task, asynq.MaxRetry(3), asynq.Queue(AnalysisQueue))
	if err != nil {
		return err
	}
	fmt.Printf("[Queue] Clothing analysis task submitted, Clothing ID: %v Task ID: %v\n", clothingID, info.ID)
	return nil
}

// HandleClothingAnalysisTask tags an item with the vision model. Only empty attributes are filled.
func HandleClothingAnalysisTask(
	ctx context.Context, t *asynq.Task, db *gorm.DB, analyzer services.ClothingAnalyzer,
	images services.ClothingImages, fbApp *firebase.App) error {
	var payload ClothingAnalysisPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("bad payload: %v: %w", err, asynq.SkipRetry)
	}
	fmt.Printf("[Clothes: %v] Start analysis\n", payload.ClothingID)

	var item models.ClothingItem
	res := db.First(&item, payload.ClothingID)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		fmt.Printf("[Clothes: %v] Item was deleted before analysis\n", payload.ClothingID)
		return nil
	}
	if res.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Clothes: %v] Error on retrieving item for analysis: %w", payload.ClothingID, res.Error))
		return res.Error
	}

	image, err := images.Bytes(ctx, item)
	if err != nil {
		fmt.Printf("[Clothes: %v] %v\n", item.ID, err)
		if saveErr := saveAnalysisFail(db, item, analysisImageUnavailableReason, false); saveErr != nil {
			return saveErr
		}
		return fmt.Errorf("[Clothes: %v] %v: %w", item.ID, err, asynq.SkipRetry)
	}

	result := analyzer.Analyze(ctx, image)
	if result.Mock {
		// mock records only stand in for a real answer in API responses, they are never stored
		message := result.Message
		if result.Success {
			message = analysisUnavailableMessage
		}
		if saveErr := saveAnalysisFail(db, item, message, !result.Success); saveErr != nil {
			return saveErr
		}
		return fmt.Errorf("[Clothes: %v] analysis failed: %s: %w", item.ID, message, asynq.SkipRetry)
	}

	raw, err := json.Marshal(result.Analysis)
	if err != nil {
		return fmt.Errorf("[Clothes: %v] encode analysis: %v: %w", item.ID, err, asynq.SkipRetry)
	}
	changed := services.ApplyAnalysis(&item, result.Analysis)
	item.Analysis = datatypes.JSON(raw)
	item.AnalysisStatus = AnalysisStatusCompleted
	item.AnalysisErrorMessage = nil
	if err := db.Omit(clause.Associations).Save(&item).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[Clothes: %v] Error saving analysis: %w", item.ID, err))
		return err
	}
	fmt.Printf("[Clothes: %v] Analysis completed, attributes changed: %v\n", item.ID, changed)

	services.SendNotification(ctx, fbApp, db, item.OwnerID,
		"Your item is tagged",
		fmt.Sprintf("%s was analyzed and its details were filled in", item.Name),
		map[string]string{"type": "clothing_analysis", "clothing_id": fmt.Sprintf("%d", item.ID)},
	)
	return nil
}

func saveAnalysisFail(db *gorm.DB, item models.ClothingItem, msg string, shouldRetry bool) error {
	item.AnalysisRetryTimes = item.AnalysisRetryTimes + 1
	if !shouldRetry {
		item.AnalysisRetryTimes = MaxAnalysisRetries
	}
	item.AnalysisErrorMessage = &msg
	item.AnalysisStatus = AnalysisStatusFailed
	tx := db.Omit(clause.Associations).Save(&item)
	if tx.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Fail Clothes %v] Error on saving failed analysis status", item.ID))
		return tx.Error
	}
	return nil
}

// HandleRequeueFailedAnalysisTask puts failed items that still have retries left back on the queue.
func HandleRequeueFailedAnalysisTask(ctx context.Context, t *asynq.Task, db *gorm.DB, client Enqueuer) error {
	var items []models.ClothingItem
	result := db.Where("analysis_status = ? AND analysis_retry_times < ?", AnalysisStatusFailed, MaxAnalysisRetries).Find(&items)
	if result.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Requeue] Error fetching failed items: %w", result.Error))
		return result.Error
	}
	fmt.Printf("[Requeue] Found %d failed items to retry\n", len(items))

	for _, item := range items {
		if err := db.Model(&models.ClothingItem{}).Where("id = ?", item.ID).Update("analysis_status", AnalysisStatusPending).Error; err != nil {
			sentry.CaptureException(err)
			continue
		}
		if err := EnqueueClothingAnalysis(client, item.ID); err != nil {
			fmt.Printf("[Requeue] Failed to enqueue item %d: %v\n", item.ID, err)
			sentry.CaptureException(err)
			db.Model(&models.ClothingItem{}).Where("id = ?", item.ID).Update("analysis_status", AnalysisStatusFailed)
		}
	}
	return nil
}
