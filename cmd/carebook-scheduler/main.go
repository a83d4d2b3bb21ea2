package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"

	"carebook/scheduler/internal/config"
	"carebook/scheduler/internal/events"
	"carebook/scheduler/internal/events/rabbitmq"
	"carebook/scheduler/internal/service/scheduling"
	"carebook/scheduler/internal/store"
	"carebook/scheduler/internal/store/cache"
	"carebook/scheduler/internal/store/memory"
	"carebook/scheduler/internal/store/postgres"
	grpcTransport "carebook/scheduler/internal/transport/grpc"
	httpTransport "carebook/scheduler/internal/transport/http"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "carebook-scheduler"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "carebook-scheduler"),
	)
	slog.SetDefault(log)

	log.Info(
		"starting",
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("store_driver", cfg.StoreDriver),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	availability, bookings, closeStore, err := openStore(ctx, log, cfg)
	if err != nil {
		os.Exit(1)
	}
	defer closeStore()

	if cfg.CacheEnabled {
		availability = cache.NewAvailability(availability, cfg.CacheSize, cfg.CacheTTL)
		log.Info("availability cache enabled", slog.Int("size", cfg.CacheSize), slog.Duration("ttl", cfg.CacheTTL))
	}

	publisher, closePublisher := openPublisher(log, cfg)
	defer closePublisher()

	svc := scheduling.NewService(availability, bookings,
		scheduling.WithPublisher(publisher),
		scheduling.WithLogger(log),
		scheduling.WithMaxRangeDays(cfg.MaxRangeDays),
		scheduling.WithDefaultTimezone(cfg.DefaultTimezone),
	)

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcTransport.DefaultRequestTimeoutInterceptor(cfg.GRPCRequestTimeout),
			grpcTransport.LoggingInterceptor(log),
		),
	)
	grpcTransport.RegisterSchedulingServiceServer(grpcServer, grpcTransport.NewSchedulingServer(svc, log))

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpTransport.NewRouter(svc, log, httpTransport.Options{
			CORSOrigins:    cfg.CORSOrigins,
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	log.Info("servers started", slog.String("grpc_addr", cfg.GRPCAddr()), slog.String("http_addr", cfg.HTTPAddr))

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped with error", slog.Any("err", err))
			exitCode = 1
		}
	}

	shutdown(log, grpcServer, httpServer, cfg.ShutdownTimeout)
	if exitCode != 0 {
		closePublisher()
		closeStore()
		os.Exit(exitCode)
	}
}

// openStore returns the repositories for the configured driver and a func releasing them.
func openStore(ctx context.Context, log *slog.Logger, cfg config.Config) (store.AvailabilityRepository, store.BookingRepository, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory store; data is lost on restart")
		st := memory.New()
		return st, st, func() {}, nil
	}

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		return nil, nil, nil, err
	}

	var closed bool
	closeDB := func() {
		if closed {
			return
		}
		closed = true
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}
	return postgres.NewAvailabilityRepo(db), postgres.NewBookingRepo(db), closeDB, nil
}

// openPublisher connects to RabbitMQ when configured. Bookings never depend on the broker, so a
// failed connection degrades to a no-op publisher.
func openPublisher(log *slog.Logger, cfg config.Config) (events.Publisher, func()) {
	if cfg.RabbitMQURL == "" {
		log.Info("booking events disabled", slog.String("reason", "rabbitmq.url not set"))
		return events.Nop{}, func() {}
	}

	pub, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
	if err != nil {
		log.Warn("rabbitmq connection failed; booking events disabled", slog.Any("err", err))
		return events.Nop{}, func() {}
	}
	log.Info("publishing booking events", slog.String("exchange", cfg.RabbitMQExchange))

	var closed bool
	return pub, func() {
		if closed {
			return
		}
		closed = true
		if err := pub.Close(); err != nil {
			log.Warn("rabbitmq close failed", slog.Any("err", err))
		}
	}
}

func shutdown(log *slog.Logger, g *grpc.Server, h *http.Server, timeout time.Duration) {
	log.Info("shutting down servers", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := h.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed", slog.Any("err", err))
	} else {
		log.Info("http server stopped")
	}

	done := make(chan struct{})
	go func() {
		g.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-ctx.Done():
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		g.Stop()
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
