package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/nikhil/staffhub/internal/chat"
	"github.com/nikhil/staffhub/internal/config"
	"github.com/nikhil/staffhub/internal/database"
	"github.com/nikhil/staffhub/internal/handlers"
	"github.com/nikhil/staffhub/internal/logger"
	"github.com/nikhil/staffhub/internal/metrics"
	"github.com/nikhil/staffhub/internal/realtime"
	"github.com/nikhil/staffhub/internal/repository"
	"github.com/nikhil/staffhub/internal/routes"
	attendanceService "github.com/nikhil/staffhub/internal/service/attendance"
	services "github.com/nikhil/staffhub/internal/service/auth"
	availabilityService "github.com/nikhil/staffhub/internal/service/availability"
	channelService "github.com/nikhil/staffhub/internal/service/channels"
	messageService "github.com/nikhil/staffhub/internal/service/messages"
	profileService "github.com/nikhil/staffhub/internal/service/users"
	"github.com/nikhil/staffhub/internal/worker/sweeper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger("", "staffhub").Fatal("Invalid configuration", "error", err)
	}

	log := logger.NewLogger(cfg.Env, "staffhub")
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server stopped", "error", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(cfg.DB.MigrateURL()); err != nil {
		return err
	}
	db, err := database.Open(ctx, cfg.DB, log.Named("database"))
	if err != nil {
		return err
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return err
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	users := repository.NewMySQLUserRepo(db)
	auth := services.NewAuthService(users, cfg.JWT, log.Named("auth"))
	profiles := profileService.NewProfileService(users, log.Named("profile"))
	channels := channelService.NewChannelService(repository.NewMySQLChannelRepo(db), users, log.Named("channels"))
	messages := messageService.NewMessageService(repository.NewMySQLMessageRepo(db), channels,
		cfg.Chat.PageSize, cfg.Chat.MaxPageSize, log.Named("messages"))

	attendance := attendanceService.NewAttendanceService(repository.NewMySQLAttendanceRepo(db), log.Named("attendance"))
	store := availabilityService.NewRedisStore(rdb)
	availability := availabilityService.NewAvailabilityService(store, attendance, users, cfg.AvailabilityTTL, rec, log.Named("availability"))
	attendance.OnCheckout(availability.ClearOnCheckout)

	hub := realtime.NewHub(log.Named("hub"), rec)
	engine := chat.NewEngine(hub, channels, messages, profiles, auth, chat.Options{RefreshRole: cfg.Chat.RefreshRole}, rec, log.Named("chat"))
	clientOpts := realtime.ClientOptions{
		SendBuffer:   cfg.Chat.SendBuffer,
		RateLimit:    cfg.Chat.RateLimit,
		RateBurst:    cfg.Chat.RateBurst,
		MaxFrameSize: cfg.Chat.MaxFrameSize,
	}

	sweep := sweeper.New(store, cfg.AvailabilityTTL, cfg.SweepInterval, log.Named("sweeper"))
	if err := sweep.Start(); err != nil {
		return err
	}
	defer sweep.Stop()

	router := routes.RegisterAllRoutes(&routes.Dependencies{
		Log:          log.Named("http"),
		Auth:         auth,
		AuthHandler:  handlers.NewAuthHandler(auth),
		Profile:      handlers.NewProfileHandler(profiles),
		Attendance:   handlers.NewAttendanceHandler(attendance),
		Availability: handlers.NewAvailabilityHandler(availability),
		WebSocket:    handlers.NewWebSocketHandler(hub, engine, clientOpts, cfg.AllowedOrigins, log.Named("websocket")),
		Health: handlers.NewHealthHandler(map[string]handlers.Check{
			"mysql": db.PingContext,
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}, log.Named("health")),
		Metrics: metrics.Handler(reg),
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server is running", "addr", cfg.HTTPAddr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	hub.Shutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
