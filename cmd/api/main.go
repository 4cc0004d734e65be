package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"journal-workflow-api/config"
	"journal-workflow-api/middleware"
	"journal-workflow-api/routes"
	"journal-workflow-api/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	settings, err := config.LoadJournalSettings(os.Getenv("JOURNAL_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load journal settings: %v", err)
	}

	// Initialize database
	db := config.InitDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blobs, err := openBlobStore(ctx)
	if err != nil {
		log.Fatalf("Failed to open file storage: %v", err)
	}

	sink := services.NewAsyncSink(buildSinks(ctx, db, settings), settings.EventBufferSize)
	defer func() {
		sink.Close()
		if dropped := sink.Dropped(); dropped > 0 {
			log.Printf("Warning: %d workflow events were dropped", dropped)
		}
	}()

	engine, err := services.NewWorkflowEngine(
		services.NewGormRepository(db),
		sink,
		services.WithSettings(settings),
		services.WithBlobStore(blobs),
	)
	if err != nil {
		log.Fatalf("Failed to start workflow engine: %v", err)
	}

	// Set Gin mode
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()
	router.Use(gin.LoggerWithWriter(config.LogWriter))
	router.Use(gin.Recovery())

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})
	router.Use(middleware.CORSMiddleware())
	router.MaxMultipartMemory = settings.MaxUploadBytes()

	routes.SetupRoutes(router, engine, middleware.JWTIdentityProviderFromEnv())

	// Start server
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{Addr: ":" + port, Handler: router}
	go func() {
		<-ctx.Done()
		log.Printf("Shutdown signal received, draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Warning: graceful shutdown failed: %v", err)
		}
	}()

	log.Printf("Server starting on port %s for %s", port, settings.Name)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Failed to start server:", err)
	}
}

// openBlobStore selects the file backend from BLOB_BACKEND (local or s3).
func openBlobStore(ctx context.Context) (services.BlobStore, error) {
	switch strings.ToLower(os.Getenv("BLOB_BACKEND")) {
	case "s3":
		log.Printf("Storing manuscript files in s3://%s", os.Getenv("S3_BUCKET"))
		return services.NewS3BlobStore(ctx, os.Getenv("S3_BUCKET"), os.Getenv("AWS_REGION"), os.Getenv("S3_PREFIX"))
	default:
		uploadPath := os.Getenv("UPLOAD_PATH")
		if uploadPath == "" {
			uploadPath = "./uploads"
		}
		log.Printf("Storing manuscript files under %s", uploadPath)
		return services.NewLocalBlobStore(uploadPath)
	}
}

// buildSinks always logs events and fans out to Redis and SMTP when they are configured.
func buildSinks(ctx context.Context, db *gorm.DB, settings config.JournalSettings) services.NotificationSink {
	sinks := services.MultiSink{services.LogSink{}}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("Warning: Redis at %s is unreachable: %v", addr, err)
		}
		sinks = append(sinks, services.NewRedisSink(client, settings.NotifyChannel))
	}

	if smtp := config.SMTPFromEnv(); smtp.Configured() {
		sinks = append(sinks, services.NewMailSink(smtp, services.NewGormUserDirectory(db), settings.Name))
	} else {
		log.Printf("SMTP is not configured; e-mail notifications are disabled")
	}
	return sinks
}
