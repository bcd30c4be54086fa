package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/domperidog/docshare/handlers"
	"github.com/domperidog/docshare/internal/auth"
	"github.com/domperidog/docshare/internal/config"
	"github.com/domperidog/docshare/internal/database"
	"github.com/domperidog/docshare/internal/document/handler"
	"github.com/domperidog/docshare/internal/document/query"
	"github.com/domperidog/docshare/internal/document/repository"
	"github.com/domperidog/docshare/internal/document/service"
	"github.com/domperidog/docshare/internal/oidc"
	"github.com/domperidog/docshare/internal/sessions"
	"github.com/domperidog/docshare/internal/storage"
	"github.com/domperidog/docshare/internal/tokens"
	"github.com/domperidog/docshare/internal/users"
	"github.com/domperidog/docshare/pkg/logger"
	"github.com/domperidog/docshare/pkg/metrics"
	"github.com/domperidog/docshare/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

var startTime = time.Now()

// stores are the backends selected from the configuration.
type stores struct {
	mongo    *mongo.Client
	redis    *redis.Client
	archive  *storage.MinIOStorage
	users    users.UserRepository
	docs     repository.Repository
	sessions sessions.Repository
}

func main() {
	envFile := pflag.String("env-file", ".env", "optional env file loaded before reading the environment")
	addr := pflag.String("addr", "", "listen address, overrides SERVER_HOST and SERVER_PORT")
	pflag.Parse()

	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	logger.SetFormat(cfg.Log.Format)
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	ctx := context.Background()
	st := connectStores(ctx, cfg)
	defer st.close()

	r, err := buildRouter(ctx, cfg, st)
	if err != nil {
		logger.Fatalf("failed to build router: %v", err)
	}

	listen := *addr
	if listen == "" {
		listen = fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	}
	srv := &http.Server{
		Addr:         listen,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	logger.Infof("Config summary: keycloak=%v mongo=%v redis=%v archive=%v", cfg.Keycloak.URL != "", st.mongo != nil, st.redis != nil, st.archive != nil)
	logger.Infof("Starting docshare on %s", listen)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// connectStores picks Mongo or the in-memory stores for users and documents
// and Redis, Mongo or memory for refresh sessions. Unreachable optional
// backends are logged and skipped.
func connectStores(ctx context.Context, cfg *config.Config) *stores {
	st := &stores{}

	if addr := cfg.Redis.Addr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			_ = client.Close()
		} else {
			st.redis = client
			logger.Infof("Connected to Redis: %s", addr)
		}
	}

	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, func(attempt int, err error) {
			logger.Warnf("attempt %d: failed to connect to MongoDB: %v", attempt, err)
		})
		if err != nil {
			logger.Fatalf("could not connect to MongoDB: %v", err)
		}
		st.mongo = client
		db := client.Database(cfg.MongoDB.Database)
		if err := database.EnsureIndexes(ctx, db); err != nil {
			logger.Fatalf("failed to create indexes: %v", err)
		}
		st.users = users.NewMongoUserRepository(db.Collection(database.UsersCollection))
		st.docs = repository.NewMongoRepo(db.Collection(database.DocumentsCollection))
	} else {
		logger.Warnf("MONGODB_URI not set; users and documents are kept in memory")
		st.users = users.NewMemoryUserRepository()
		st.docs = repository.NewMemoryRepo()
	}

	switch {
	case st.redis != nil:
		st.sessions = sessions.NewRedisRepository(st.redis, "session:")
		logger.Infof("Using Redis for session storage")
	case st.mongo != nil:
		st.sessions = sessions.NewMongoRepository(st.mongo.Database(cfg.MongoDB.Database).Collection(database.SessionsCollection))
	default:
		st.sessions = sessions.NewMemoryRepository()
	}

	if cfg.Archive.Endpoint != "" {
		a, err := storage.NewMinIOStorage(ctx, &storage.MinIOConfig{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			UseSSL:    cfg.Archive.UseSSL,
			Bucket:    cfg.Archive.Bucket,
		})
		if err != nil {
			logger.Warnf("document archive disabled: %v", err)
		} else {
			st.archive = a
		}
	}
	return st
}

func (st *stores) close() {
	if st.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = st.mongo.Disconnect(ctx)
	}
	if st.redis != nil {
		_ = st.redis.Close()
	}
}

func buildRouter(ctx context.Context, cfg *config.Config, st *stores) (*gin.Engine, error) {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	issuer := tokens.NewIssuer(cfg.JWT.Secret)
	blacklist := sessions.NewBlacklist(st.redis)
	resolverOpts := []auth.Option{auth.WithRevocationList(blacklist)}
	switch {
	case cfg.Keycloak.URL != "" && cfg.Keycloak.ClientID != "":
		ver, err := oidc.NewVerifier(ctx, cfg.Keycloak.Issuer(), cfg.Keycloak.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			resolverOpts = append(resolverOpts, auth.WithExternal(ver))
		}
	case cfg.Keycloak.AllowInsecure:
		logger.Warnf("enabling insecure OIDC verifier (development only)")
		resolverOpts = append(resolverOpts, auth.WithExternal(oidc.NewInsecureVerifier()))
	}
	resolver := auth.NewResolver(issuer, st.users, resolverOpts...)

	sessionSvc := sessions.NewService(st.sessions)
	docOpts := []service.Option{service.WithSessionRevoker(sessionSvc)}
	if st.archive != nil {
		docOpts = append(docOpts, service.WithArchiver(st.archive))
	}
	docs := service.New(st.docs, st.users, docOpts...)
	q, err := query.New(st.docs, cfg.Pagination)
	if err != nil {
		return nil, err
	}

	var limiter []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && st.redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			limiter = append(limiter, middleware.RedisRateLimitMiddleware(st.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			limiter = append(limiter, middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}
	guards := middleware.NewGuards(resolver, limiter...)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS(cfg.Server.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readiness(st))

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	hasher := users.NewBcryptHasher(bcrypt.DefaultCost)
	handlers.NewAuthHandler(users.NewService(st.users, hasher), sessionSvc, issuer, blacklist, cfg.JWT).Register(r, guards)
	handlers.NewUsersHandler(docs, q).Register(r, guards)
	handler.New(docs, q, guards).RegisterDocumentRoutes(r)
	return r, nil
}

// readiness returns 200 only when every configured backend answers.
func readiness(st *stores) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		ready := true
		deps := map[string]bool{}
		if st.mongo != nil {
			deps["mongodb"] = st.mongo.Ping(ctx, nil) == nil
			ready = ready && deps["mongodb"]
		}
		if st.redis != nil {
			deps["redis"] = st.redis.Ping(ctx).Err() == nil
			ready = ready && deps["redis"]
		}
		if st.archive != nil {
			// archiving is best effort and does not gate readiness
			deps["archive"] = st.archive.Ready(ctx)
		}
		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	}
}
