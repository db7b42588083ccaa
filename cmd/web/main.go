package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/joao-fontenele/burgerverse/internal/accounts"
	"github.com/joao-fontenele/burgerverse/internal/catalog"
	"github.com/joao-fontenele/burgerverse/internal/config"
	"github.com/joao-fontenele/burgerverse/internal/domain"
	"github.com/joao-fontenele/burgerverse/internal/messaging"
	"github.com/joao-fontenele/burgerverse/internal/orders"
	"github.com/joao-fontenele/burgerverse/internal/telemetry"
	"github.com/joao-fontenele/burgerverse/internal/web"
)

const serviceName = "burgerverse-web"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := telemetry.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.Postgres.URL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}
	if cfg.Auth.SecretKey == "" {
		logger.Error("SECRET_KEY environment variable is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry.OTLPEndpoint, serviceName, cfg.Telemetry.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, cfg.Telemetry.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	db, err := telemetry.OpenDB(ctx, cfg.Postgres.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	var menuCache catalog.Cache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, menu will be served from postgres", "error", err, "addr", cfg.Redis.Addr)
		}
		menuCache = catalog.NewRedisCache(rdb, cfg.Redis.MenuTTL)
	}

	var publisher orders.EventPublisher
	if brokers := cfg.KafkaBrokers(); len(brokers) > 0 {
		producer := messaging.NewProducer(brokers, cfg.Kafka.Topic, domain.OrderCheckedOutEventType)
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	renderer, err := web.NewRenderer(logger)
	if err != nil {
		logger.Error("failed to parse templates", "error", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(db)
	catalogService := catalog.NewService(catalogRepo, menuCache, logger)
	catalogHandler := catalog.NewHandler(catalogService, renderer, logger)

	tokens := accounts.NewTokenManager(cfg.Auth.SecretKey, cfg.Auth.SessionTTL)
	accountsService := accounts.NewService(accounts.NewRepository(db), tokens, bcrypt.DefaultCost)
	accountsHandler := accounts.NewHandler(accountsService, tokens, renderer, cfg.Auth.SecureCookie, logger)

	ordersService, err := orders.NewService(orders.NewRepository(db), catalogService)
	if err != nil {
		logger.Error("failed to create orders service", "error", err)
		os.Exit(1)
	}
	ordersHandler := orders.NewHandler(ordersService, renderer, publisher, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(accounts.Authenticate(tokens))

	r.Get("/", telemetry.WithHTTPRoute("/", catalogHandler.HandleMenu))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/accounts", func(r chi.Router) {
		r.Get("/signup/", telemetry.WithHTTPRoute("/accounts/signup/", accountsHandler.HandleSignupForm))
		r.Post("/signup/", telemetry.WithHTTPRoute("/accounts/signup/", accountsHandler.HandleSignup))
		r.Get("/login/", telemetry.WithHTTPRoute("/accounts/login/", accountsHandler.HandleLoginForm))
		r.Post("/login/", telemetry.WithHTTPRoute("/accounts/login/", accountsHandler.HandleLogin))
		r.Post("/logout/", telemetry.WithHTTPRoute("/accounts/logout/", accountsHandler.HandleLogout))
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(accounts.RequireLogin)
		r.Get("/", telemetry.WithHTTPRoute("/orders/", ordersHandler.HandleCart))
		r.Post("/add/{productID}/", telemetry.WithHTTPRoute("/orders/add/{productID}/", ordersHandler.HandleAdd))
		r.Post("/remove/{productID}/", telemetry.WithHTTPRoute("/orders/remove/{productID}/", ordersHandler.HandleRemove))
		r.Post("/checkout/", telemetry.WithHTTPRoute("/orders/checkout/", ordersHandler.HandleCheckout))
		r.Get("/success/{orderID}/", telemetry.WithHTTPRoute("/orders/success/{orderID}/", ordersHandler.HandleSuccess))
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      otelhttp.NewHandler(r, serviceName),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logger.Info("starting web service", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
