package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"admission-gateway/internal/config"
	"admission-gateway/middleware/admission"
	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"
	"admission-gateway/middleware/admission/infra"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		// configuração inválida é fatal: o resolver precisa ser total
		zap.NewExample().Fatal("config error", zap.Error(err))
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		zap.NewExample().Fatal("logger error", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	target, err := url.Parse(cfg.Server.UpstreamURL)
	if err != nil {
		logger.Fatal("invalid upstream_url", zap.Error(err))
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("proxy error", zap.Error(err), zap.String("path", r.URL.Path))
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	resolver, err := application.NewResolver(cfg.Admission.APIPrefix, cfg.Admission.DomainRules())
	if err != nil {
		logger.Fatal("rule table error", zap.Error(err))
	}
	inspector := application.NewInspector(cfg.Admission.Blocklist)
	classifier := application.NewClassifier(application.ClassifierConfig{
		PublicRoutes:     cfg.Admission.PublicRoutes,
		ProtectedRoutes:  cfg.Admission.ProtectedRoutes,
		AdminRoutes:      cfg.Admission.AdminRoutes,
		StaticPrefixes:   cfg.Admission.StaticPrefixes,
		StaticExtensions: cfg.Admission.StaticExtensions,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var store domain.CounterStore
	var memStore *infra.MemoryStore
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		pingCancel()
		if err != nil {
			logger.Fatal("redis ping error", zap.Error(err))
		}

		var opts []infra.RedisOption
		if cfg.Redis.Prefix != "" {
			opts = append(opts, infra.WithPrefix(cfg.Redis.Prefix))
		}
		store = infra.NewRedisStore(rdb, opts...)
		logger.Info("counter store: redis (shared window across replicas)", zap.String("addr", cfg.Redis.Addr))
	} else {
		memStore = infra.NewMemoryStore(infra.WithSweepEvery(cfg.Admission.SweepEvery.Std()))
		memStore.StartJanitor(ctx)
		store = memStore
		logger.Info("counter store: in-memory (per-instance limits only)")
	}

	var stats domain.StatsStore
	var memStats *infra.MemoryStatsStore
	if cfg.Admission.Stats.Enabled {
		if rdb != nil {
			// com Redis, as estatísticas são agregadas entre réplicas;
			// o snapshot local do /stats fica indisponível
			stats = infra.NewRedisStatsStore(rdb, infra.WithStatsTrackKeys(cfg.Admission.Stats.TrackKeys))
		} else {
			memStats = infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.Admission.Stats.TrackKeys))
			stats = memStats
		}
	}

	h := http.Handler(proxy)
	h = admission.ConcurrencyMiddleware(admission.ConcurrencyOptions{
		Max:            cfg.Server.ConcurrencyMax,
		AcquireTimeout: cfg.Server.ConcurrencyTimeout.Std(),
	})(h)
	h = admission.Middleware(admission.Options{
		Resolver:   resolver,
		Store:      store,
		Inspector:  inspector,
		Classifier: classifier,
		Auth: admission.CookieSessionProvider{
			CookieName: cfg.Admission.SessionCookie,
			SignInURL:  cfg.Admission.SignInPath,
		},
		Stats:       stats,
		IdentityFn:  admission.DefaultIdentityFunc(cfg.Admission.ConnectingIPHeader, cfg.Admission.RealIPHeader),
		Logger:      logger,
		SignInPath:  cfg.Admission.SignInPath,
		SignUpPath:  cfg.Admission.SignUpPath,
		LandingPath: cfg.Admission.LandingPath,
	})(h)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout.Std(),
		ReadTimeout:       cfg.Server.ReadTimeout.Std(),
		WriteTimeout:      cfg.Server.WriteTimeout.Std(),
		IdleTimeout:       cfg.Server.IdleTimeout.Std(),
	}

	opsSrv := &http.Server{
		Addr:              cfg.Server.OpsAddr,
		Handler:           newOpsRouter(memStats, memStore),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = opsSrv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("ops server listening", zap.String("addr", cfg.Server.OpsAddr))
		if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server error", zap.Error(err))
		}
	}()

	logger.Info("gateway listening",
		zap.String("addr", cfg.Server.ListenAddr),
		zap.String("upstream", target.String()),
		zap.String("api_prefix", cfg.Admission.APIPrefix),
		zap.Int("rules", len(cfg.Admission.Rules)),
		zap.Int("blocklist", len(cfg.Admission.Blocklist)),
		zap.Int("concurrency_max", cfg.Server.ConcurrencyMax))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

// newOpsRouter monta os endpoints operacionais, fora do pipeline de admissão.
func newOpsRouter(memStats *infra.MemoryStatsStore, memStore *infra.MemoryStore) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	router.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if memStats == nil {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "no local stats snapshot"})
			return
		}
		out := map[string]any{
			"total":     memStats.Total(),
			"by_reason": memStats.ByReason(),
			"by_route":  memStats.ByRoute(),
		}
		if memStore != nil {
			out["live_counters"] = memStore.Len()
		}
		_ = json.NewEncoder(w).Encode(out)
	}).Methods(http.MethodGet)

	return router
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
