package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callpower/internal/audit"
	"callpower/internal/auth"
	"callpower/internal/callflow"
	"callpower/internal/calls"
	"callpower/internal/campaign"
	"callpower/internal/config"
	"callpower/internal/httpapi"
	"callpower/internal/lookup"
	"callpower/internal/media"
	"callpower/internal/political"
	"callpower/internal/reporting"
	"callpower/internal/telephony"
	"callpower/pkg/logger"
	"callpower/pkg/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()
	authManager.WithReplayGuard(auth.NewRedisReplayGuard(rdb))

	resolver, err := newMediaResolver(cfg.S3)
	if err != nil {
		log.Error("s3 init failed", "err", err)
		os.Exit(1)
	}

	var originator telephony.CallOriginator
	if cfg.Twilio.AccountSID != "" {
		p, err := telephony.NewTwilioProvider(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)
		if err != nil {
			log.Error("twilio init failed", "err", err)
			os.Exit(1)
		}
		originator = p
	} else {
		log.Warn("twilio credentials not set, outbound /create disabled")
	}

	campaigns := campaign.NewPostgresRepo(db)
	callRepo := calls.NewPostgresRepo(db)
	recorder := calls.NewRecorder(callRepo, log)

	flow, err := callflow.New(callflow.Config{
		ApplicationRoot:   cfg.CallFlow.ApplicationRoot,
		TimeLimit:         cfg.Twilio.TimeLimit,
		Timeout:           cfg.Twilio.Timeout,
		ZipDigits:         cfg.CallFlow.ZipDigits,
		MaxZipAttempts:    cfg.CallFlow.MaxZipAttempts,
		LogPhoneNumbers:   cfg.CallFlow.LogPhoneNumbers,
		DefaultCampaignID: cfg.CallFlow.DefaultCampaignID,
		Debug:             cfg.IsDebug(),
	}, callflow.Deps{
		Store:      campaigns,
		Locator:    lookup.NewLocator(lookup.NewPostgresSource(db), cfg.CallFlow.LookupCacheTTL),
		Recorder:   recorder,
		Originator: originator,
		Media:      resolver,
		Guard:      callflow.NewRedisLegGuard(rdb, 0),
		Limiter:    callflow.NewRedisCallerLimiter(rdb, 1, cfg.CallFlow.CallerCapTTL),
		Log:        log,
	})
	if err != nil {
		log.Error("callflow init failed", "err", err)
		os.Exit(1)
	}

	admin := httpapi.Handlers{
		Auth:     authManager,
		Importer: political.NewImporter(campaigns),
		Reports:  reporting.NewService(callRepo),
		Audit:    audit.NewService(audit.NewPostgresRepo(db)),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log, cfg.CallFlow.LogPhoneNumbers))

	var webhookMW []gin.HandlerFunc
	if cfg.Twilio.ValidateSignatures {
		webhookMW = append(webhookMW, telephony.RequireTwilioSignature(cfg.Twilio.AuthToken, cfg.CallFlow.ApplicationRoot))
	}

	registerHealthRoutes(r, db)
	registerCallRoutes(r, flow, webhookMW...)
	registerAdminRoutes(r, auth.RequireAccessToken(authManager), admin)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	// Leg records are written after the TwiML reply; drain them before the pool closes.
	if err := recorder.Wait(shutdownCtx); err != nil {
		log.Error("call records not drained", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}

// newMediaResolver presigns recordings from a bucket when one is configured,
// otherwise serves them from the public base URL.
func newMediaResolver(cfg config.S3Config) (media.Resolver, error) {
	if cfg.Bucket == "" {
		return media.StaticResolver{BaseURL: cfg.PublicBaseURL}, nil
	}
	client, err := utils.OpenS3(utils.S3Config{
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return media.NewS3Resolver(client, cfg.Bucket, cfg.PresignTTL), nil
}
