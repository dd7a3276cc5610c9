package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"unimarket/internal/adapter/api"
	"unimarket/internal/adapter/api/handler"
	apimiddleware "unimarket/internal/adapter/api/middleware"
	"unimarket/internal/adapter/api/router"
	"unimarket/internal/adapter/repository"
	"unimarket/internal/domain/service"
	"unimarket/internal/infrastructure/firebase"
	"unimarket/internal/infrastructure/notifier"
	"unimarket/internal/infrastructure/ratelimit"
	"unimarket/internal/infrastructure/storage"
	"unimarket/internal/infrastructure/websocket"
	"unimarket/internal/usecase"
	"unimarket/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := credentialOptions()

	authClient, err := firebase.NewAuthClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Cloud Storage: %v", err)
	}
	defer storageClient.Close()

	offerRepo := repository.NewFirestoreOfferRepository(firestoreClient)
	transactionRepo := repository.NewFirestoreTransactionRepository(firestoreClient)
	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	listings := repository.NewFirestoreListingService(firestoreClient)

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	var events service.Notifier
	if cfg.NatsURL != "" {
		natsNotifier, err := notifier.NewNatsNotifier(cfg.NatsURL)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer natsNotifier.Close()
		events = natsNotifier
	} else {
		events = notifier.NewWebSocketNotifier(wsManager)
	}

	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	offerUseCase := usecase.NewOfferUseCase(offerRepo, listings, events, rateLimiter, cfg.OfferDefaultTTL)
	transactionUseCase := usecase.NewTransactionUseCase(transactionRepo, userRepo, listings, events, cfg.AutoCompleteAfter)
	messageUseCase := usecase.NewMessageUseCase(transactionRepo, events, rateLimiter)
	evidenceUseCase := usecase.NewEvidenceUseCase(transactionRepo, userRepo, storageClient, events)

	offerUseCase.StartExpirySweeper(ctx, cfg.OfferSweepEvery)
	transactionUseCase.StartAutoCompleteJob(ctx, cfg.AutoCompleteEvery)

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient)
	adminMiddleware := apimiddleware.NewAdminMiddleware(userRepo)

	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.CORS())

	router.Setup(
		e,
		handler.NewOfferHandler(offerUseCase),
		handler.NewTransactionHandler(transactionUseCase),
		handler.NewMessageHandler(messageUseCase),
		handler.NewEvidenceHandler(evidenceUseCase),
		handler.NewWebSocketHandler(wsManager),
		handler.NewHealthHandler(cfg.Environment),
		authMiddleware,
		adminMiddleware,
	)

	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

// credentialOptions picks service account credentials from the environment:
// inline JSON first, then a file path. With neither set, application default
// credentials apply.
func credentialOptions() []option.ClientOption {
	if json := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); json != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(json))}
	}
	if path := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}
