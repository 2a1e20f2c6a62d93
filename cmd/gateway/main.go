package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/betteragri/marketplace/internal/gateway"
	"github.com/betteragri/marketplace/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "gateway", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	apiServiceURL := os.Getenv("API_SERVICE_URL")
	if apiServiceURL == "" {
		logger.Error("API_SERVICE_URL is required")
		os.Exit(1)
	}

	weatherServiceURL := os.Getenv("WEATHER_SERVICE_URL")
	if weatherServiceURL == "" {
		logger.Error("WEATHER_SERVICE_URL is required")
		os.Exit(1)
	}

	diagnosisServiceURL := os.Getenv("DIAGNOSIS_SERVICE_URL")
	if diagnosisServiceURL == "" {
		logger.Error("DIAGNOSIS_SERVICE_URL is required")
		os.Exit(1)
	}

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	apiProxy := gateway.NewServiceProxy(apiServiceURL, httpClient)
	weatherProxy := gateway.NewServiceProxy(weatherServiceURL, httpClient)
	diagnosisProxy := gateway.NewServiceProxy(diagnosisServiceURL, httpClient)
	handler := gateway.NewHandler(apiProxy, weatherProxy, diagnosisProxy, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("POST /cart/items", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("PATCH /cart/items/{productId}", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("DELETE /cart/items/{productId}", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("POST /cart/clear", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("GET /orders/stats", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("POST /orders/{id}/transition", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("GET /orders/{id}/farmer-portion", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("GET /orders/{id}/reviewable-farmers", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("POST /reviews", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("GET /reviews", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("GET /farmers/{id}/reviews", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("POST /payments", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("GET /payments", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("POST /payments/{id}/complete", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("POST /payments/{id}/fail", telemetry.WithHTTPRoute(handler.HandleAPI))
	mux.HandleFunc("GET /weather/{location}", telemetry.WithHTTPRoute(handler.HandleWeather))
	mux.HandleFunc("POST /diagnosis/{crop}", telemetry.WithHTTPRoute(handler.HandleDiagnosis))

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "gateway",
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
		logger.Info("starting gateway service", "port", port)
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
