package main

import (
	"context"
	"log"
	"os"
	"time"
	"wardrobeapi/dbhelper"
	"wardrobeapi/services"
	"wardrobeapi/tasks"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
)

func runScheduler() {

	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")}, &asynq.SchedulerOpts{
		LogLevel: asynq.InfoLevel,
	})

	entries := []struct {
		cron string
		task *asynq.Task
		desc string
	}{
		{
			cron: "0 * * * *",
			task: tasks.NewRequeueFailedAnalysisTask(),
			desc: "Requeue failed clothing analysis",
		},
	}

	for _, t := range entries {
		entryID, err := scheduler.Register(t.cron, t.task, asynq.Queue(tasks.AnalysisQueue))
		if err != nil {
			log.Fatalf("Failed to register task '%s': %v", t.desc, err)
		}
		log.Printf("Registered task '%s' with ID: %s, cron: %s", t.desc, entryID, t.cron)
	}

	log.Println("Starting scheduler...")
	if err := scheduler.Run(); err != nil {
		log.Fatalf("Scheduler failed: %v", err)
	}
}

func main() {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         os.Getenv("SENTRY_DSN"),
		Environment: services.GetEnv("ENV", "local"),
		Release:     "wardrobeapi-worker@1.0.0",
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	redisOpt := asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")}
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{Concurrency: 10, Queues: map[string]int{
			tasks.AnalysisQueue: 7,
		}},
	)
	client := asynq.NewClient(redisOpt)
	defer client.Close()

	awsService := &services.AWSService{}
	if err := awsService.InitPresignClient(context.Background()); err != nil {
		log.Fatal("[Queue] Failed to initialize AWS provider: S3 ", err)
	}
	urlCache, err := services.NewURLCacheService(awsService, services.GetEnv("R2_BUCKET_NAME", ""))
	if err != nil {
		log.Fatal("[Queue] Failed to initialize URL cache service: ", err)
	}
	images := services.NewClothingImages(awsService, urlCache)
	analyzer := services.ClothingAnalysisService{LLM: services.GoogleLLMProcessor{}}

	app, err := firebase.NewApp(context.Background(), nil)
	if err != nil {
		log.Fatalf("error initializing firebase app: %v\n", err)
		return
	}

	mux := asynq.NewServeMux()
	db := dbhelper.SetupDB()
	mux.HandleFunc(tasks.TypeClothingAnalyze, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleClothingAnalysisTask(ctx, t, db, analyzer, images, app)
	})
	mux.HandleFunc(tasks.TypeRequeueFailedAnalysis, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleRequeueFailedAnalysisTask(ctx, t, db, client)
	})

	go runScheduler()
	if err := srv.Run(mux); err != nil {
		log.Fatal(err)
	}
}
