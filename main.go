package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"urbanconnect-be/classifier"
	"urbanconnect-be/config"
	"urbanconnect-be/controllers"
	"urbanconnect-be/events"
	"urbanconnect-be/geocoder"
	"urbanconnect-be/repository"
	"urbanconnect-be/routes"
	"urbanconnect-be/services"
	"urbanconnect-be/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, db, err := config.ConnectDB(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := config.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	rdb, err := config.ConnectRedis(ctx, cfg.RedisAddress, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// With Redis every instance publishes to the stream and relays it back
	// into its local hub, so each dashboard sees every instance's changes
	// exactly once.
	hub := events.NewHub(32)
	var publisher services.Publisher = hub
	if rdb != nil {
		stream := events.NewRedisStream(rdb)
		publisher = stream
		go stream.Relay(ctx, hub)
	}

	var media controllers.MediaBackend
	switch cfg.MediaBackend {
	case "disk":
		media = storage.NewDisk(cfg.MediaDir, cfg.PublicBaseURL)
	default:
		media = storage.NewGridFS(db, config.MediaBucket, cfg.PublicBaseURL)
	}

	issueRepo := repository.NewIssueRepository(db.Collection(config.IssuesCollection))
	userRepo := repository.NewUserRepository(db.Collection(config.UsersCollection))
	voteRepo := repository.NewVoteRepository(db.Collection(config.VotesCollection), config.IssuesCollection)
	workerRepo := repository.NewWorkerRepository(db.Collection(config.WorkersCollection))
	activityRepo := repository.NewActivityRepository(db.Collection(config.ActivityCollection))

	geo := services.NewGeoValidator(
		geocoder.NewClient(cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.ExternalTimeout),
		logger,
	)
	pipeline := services.NewSubmissionPipeline(services.PipelineDeps{
		Variant:    services.ParseVariant(cfg.PipelineVariant),
		Geo:        geo,
		Classifier: classifier.NewClient(cfg.ClassifierURL, cfg.ExternalTimeout),
		Media:      media,
		Issues:     issueRepo,
		Events:     publisher,
		Log:        logger,
	})
	triage := services.NewAdminTriage(services.TriageDeps{
		Issues:   issueRepo,
		Workers:  workerRepo,
		Media:    media,
		Activity: activityRepo,
		Events:   publisher,
		Log:      logger,
	})
	analytics := services.NewAnalyticsService(issueRepo, voteRepo, logger)
	issueService := services.NewIssueService(issueRepo, voteRepo, publisher, logger)
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL, logger)

	if err := authService.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName, cfg.AdminDepartment); err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}

	eventsController := controllers.NewEventsController(hub)
	router := routes.Setup(routes.Handlers{
		Auth:   controllers.NewAuthController(authService, cfg.Production(), cfg.Domain),
		Issues: controllers.NewIssueController(pipeline, issueService),
		Admin:  controllers.NewAdminController(triage, analytics),
		Media:  controllers.NewMediaController(media),
		Geo:    controllers.NewGeoController(geo),
		Events: eventsController,
	}, routes.Options{
		JWTSecret:       cfg.JWTSecret,
		AllowedOrigins:  cfg.AllowedOrigins,
		Redis:           rdb,
		IssueLimitQueue: cfg.IssueLimitQueue,
		DailyIssueLimit: cfg.DailyIssueLimit,
		Log:             logger,
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Event streams never finish on their own.
	httpSrv.RegisterOnShutdown(eventsController.Close)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	logger.Info("UrbanConnect API listening", "port", cfg.Port, "variant", pipeline.Variant(), "media", cfg.MediaBackend)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	if cfg.Production() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
