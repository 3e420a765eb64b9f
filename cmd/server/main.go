package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"
	config "github.com/showfolio/crosspost/configs"
	"github.com/showfolio/crosspost/internal/api/handlers"
	"github.com/showfolio/crosspost/internal/api/middleware"
	job "github.com/showfolio/crosspost/internal/jobs"
	"github.com/showfolio/crosspost/internal/platforms"
	"github.com/showfolio/crosspost/internal/queue"
	"github.com/showfolio/crosspost/internal/repository"
	"github.com/showfolio/crosspost/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()
	inspector := asynq.NewInspector(redisConn)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	postRepo := repository.NewScheduledPostRepository(db)
	logRepo := repository.NewPublishLogRepository(db)
	tokenRepo := repository.NewPlatformTokenRepository(db)
	projectRepo := repository.NewProjectRepository(db)

	mediaService := service.NewMediaService(*cfg)
	composer := service.NewComposer()
	postService := service.NewPostService(postRepo, projectRepo, logRepo, composer, mediaService)
	connectService := service.NewConnectService(*cfg, tokenRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	platform := handlers.NewPlatformHandler(connectService, *cfg)
	app.Get("/auth/:platform", platform.ConnectAccount)
	app.Get("/auth/:platform/callback", platform.CallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	post := handlers.NewPostHandler(postService, client, inspector)
	api.Post("/posts/create", post.CreatePost)
	api.Post("/posts/cancel", post.CancelPost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/logs", post.PostLogs)

	// social accounts api routes
	api.Get("/accounts", platform.ListAccounts)
	api.Post("/accounts/remove", platform.DisconnectAccount)

	// cron jobs
	tokenExpiryJob := job.NewTokenExpiryJob(tokenRepo)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", tokenExpiryJob.DeactivateExpired)
	c.Start()

	registry := platforms.NewRegistry()
	worker := queue.NewWorker(*cfg, postRepo, logRepo, tokenRepo, projectRepo, registry, client, queue.LogCollector{})

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, worker.HandlePublishTask)
		mux.HandleFunc(queue.TaskTypeCollectMetrics, worker.HandleCollectMetricsTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
