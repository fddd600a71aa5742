package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/celeparty/ticketops/internal/adapters/cms"
	mongoadapter "github.com/celeparty/ticketops/internal/adapters/mongo"
	"github.com/celeparty/ticketops/internal/adapters/rabbit"
	redisadapter "github.com/celeparty/ticketops/internal/adapters/redis"
	"github.com/celeparty/ticketops/internal/config"
	"github.com/celeparty/ticketops/internal/gateway"
	httphandler "github.com/celeparty/ticketops/internal/http"
	"github.com/celeparty/ticketops/internal/notify"
	"github.com/celeparty/ticketops/internal/observability"
	"github.com/celeparty/ticketops/internal/rateLimit"
	"github.com/celeparty/ticketops/internal/recon"
	"github.com/celeparty/ticketops/internal/verify"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	store := cms.NewClient(cfg.CMSBaseURL, cfg.CMSToken, cfg.CMSTimeout, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	locks := redisadapter.NewLocks(redisClient)
	rl := rateLimit.NewRateLimiter(locks)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	trail := mongoadapter.NewTrail(mongoClient.Database("celeparty"), logger)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}
	emails := notify.NewPublisher(rabbitPub)

	sigVerifier := gateway.NewSignatureVerifier(cfg.GatewayServerKey, cfg.GatewaySkipSignature)
	locator := recon.NewLocator(store)
	writer := recon.NewStatusWriter(store, logger)
	reconciler := recon.NewReconciler(sigVerifier, locator, writer, locks, cfg.OrderLockTTL, emails, trail, logger)
	verifier := verify.NewVerifier(store, trail, logger)

	handlers := httphandler.NewHandlers(reconciler, verifier, locator, logger)
	r := httphandler.SetupRouter(handlers, logger, rl)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()
	logger.WithField("addr", cfg.HTTPAddr).Info("ticketops api listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
