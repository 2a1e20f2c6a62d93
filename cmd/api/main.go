package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/betteragri/marketplace/internal/cart"
	"github.com/betteragri/marketplace/internal/catalog"
	"github.com/betteragri/marketplace/internal/checkout"
	"github.com/betteragri/marketplace/internal/config"
	"github.com/betteragri/marketplace/internal/messaging"
	"github.com/betteragri/marketplace/internal/orders"
	"github.com/betteragri/marketplace/internal/payments"
	"github.com/betteragri/marketplace/internal/reviews"
	"github.com/betteragri/marketplace/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "marketplace-api", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("marketplace-api", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	metrics, err := telemetry.NewOrderMetrics()
	if err != nil {
		logger.Error("failed to create domain metrics", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	dbx := sqlx.NewDb(db, "postgres")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = redisClient.Close() }()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	var orderCreatedProducer *messaging.Producer
	var statusChangedProducer *messaging.Producer
	if len(cfg.KafkaBrokers) > 0 {
		orderCreatedProducer = messaging.NewProducer(cfg.KafkaBrokers, messaging.TopicOrderCreated)
		defer func() { _ = orderCreatedProducer.Close() }()

		statusChangedProducer = messaging.NewProducer(cfg.KafkaBrokers, messaging.TopicOrderStatusChanged)
		defer func() { _ = statusChangedProducer.Close() }()
	}

	catalogRepo := catalog.NewRepository(db)
	catalogHandler := catalog.NewHandler(catalogRepo, logger)

	cartStore := cart.NewStore(redisClient)
	cartHandler := cart.NewHandler(cartStore, catalogRepo, logger)

	orderRepo := orders.NewOrderRepository(db)
	orderHandler := orders.NewHandler(orderRepo, catalogRepo, publisher(statusChangedProducer), metrics, logger)

	checkoutService := checkout.NewService(cartStore, catalogRepo, orderRepo, publisher(orderCreatedProducer), metrics, logger)
	checkoutHandler := checkout.NewHandler(checkoutService, logger)

	reviewRepo := reviews.NewReviewRepository(dbx)
	reviewHandler := reviews.NewHandler(reviewRepo, orderRepo, metrics, logger)

	paymentRepo := payments.NewPaymentRepository(dbx)
	paymentHandler := payments.NewHandler(paymentRepo, orderRepo, cfg.Currency, metrics, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(catalogHandler.HandleList))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleGet))

	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(cartHandler.HandleGet))
	mux.HandleFunc("POST /cart/items", telemetry.WithHTTPRoute(cartHandler.HandleAddItem))
	mux.HandleFunc("PATCH /cart/items/{productId}", telemetry.WithHTTPRoute(cartHandler.HandleUpdateItem))
	mux.HandleFunc("DELETE /cart/items/{productId}", telemetry.WithHTTPRoute(cartHandler.HandleRemoveItem))
	mux.HandleFunc("POST /cart/clear", telemetry.WithHTTPRoute(cartHandler.HandleClear))

	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(checkoutHandler.HandleCheckout))

	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("GET /orders/stats", telemetry.WithHTTPRoute(orderHandler.HandleStats))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))
	mux.HandleFunc("POST /orders/{id}/transition", telemetry.WithHTTPRoute(orderHandler.HandleTransition))
	mux.HandleFunc("GET /orders/{id}/farmer-portion", telemetry.WithHTTPRoute(orderHandler.HandleFarmerPortion))
	mux.HandleFunc("GET /orders/{id}/reviewable-farmers", telemetry.WithHTTPRoute(reviewHandler.HandleReviewableFarmers))

	mux.HandleFunc("POST /reviews", telemetry.WithHTTPRoute(reviewHandler.HandleCreate))
	mux.HandleFunc("GET /reviews", telemetry.WithHTTPRoute(reviewHandler.HandleListMine))
	mux.HandleFunc("GET /farmers/{id}/reviews", telemetry.WithHTTPRoute(reviewHandler.HandleFarmerReviews))

	mux.HandleFunc("POST /payments", telemetry.WithHTTPRoute(paymentHandler.HandleCreate))
	mux.HandleFunc("GET /payments", telemetry.WithHTTPRoute(paymentHandler.HandleListMine))
	mux.HandleFunc("POST /payments/{id}/complete", telemetry.WithHTTPRoute(paymentHandler.HandleComplete))
	mux.HandleFunc("POST /payments/{id}/fail", telemetry.WithHTTPRoute(paymentHandler.HandleFail))

	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(mux, "marketplace-api",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting marketplace api", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

// publisher keeps a nil *messaging.Producer from becoming a non-nil
// interface value when Kafka is not configured.
func publisher(p *messaging.Producer) orders.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}
