package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/simple-oxtrust/pkg/adminauth"
	"github.com/tendant/simple-oxtrust/pkg/appliance"
	"github.com/tendant/simple-oxtrust/pkg/audit"
	applianceapi "github.com/tendant/simple-oxtrust/pkg/appliance/api"
	"github.com/tendant/simple-oxtrust/pkg/cache"
	"github.com/tendant/simple-oxtrust/pkg/config"
	"github.com/tendant/simple-oxtrust/pkg/oauthclient"
	oauthclientapi "github.com/tendant/simple-oxtrust/pkg/oauthclient/api"
	"github.com/tendant/simple-oxtrust/pkg/organization"
	"github.com/tendant/simple-oxtrust/pkg/persistence"
	"github.com/tendant/simple-oxtrust/pkg/ratelimit"
	"github.com/tendant/simple-oxtrust/pkg/registration"
	registrationapi "github.com/tendant/simple-oxtrust/pkg/registration/api"
	"github.com/tendant/simple-oxtrust/pkg/scope"
	scopeapi "github.com/tendant/simple-oxtrust/pkg/scope/api"
)

type Config struct {
	Store        config.StoreConfig
	Database     config.DatabaseConfig
	Cache        config.CacheConfig
	Organization config.OrganizationConfig
	Client       config.ClientConfig
	JWT          config.JWTConfig
	RateLimit    ratelimit.Config

	HeartbeatInterval string `env:"OXTRUST_HEARTBEAT_INTERVAL" env-default:"PT1M"`

	// Server
	AppConfig app.AppConfig
}

func (c *Config) Validate() error {
	for _, v := range []interface{ Validate() error }{c.Store, c.Cache, c.Organization, c.JWT} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if c.Store.Type == "postgres" {
		return c.Database.Validate()
	}
	return nil
}

type Services struct {
	store               persistence.EntryStore
	applianceService    *appliance.ApplianceService
	healthChecker       *appliance.HealthChecker
	organizationService *organization.OrganizationService
	scopeService        *scope.ScopeService
	clientService       *oauthclient.ClientService
	interceptionService *registration.InterceptionService
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	loadEnvFile()

	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Store, cfg.Database)
	if err != nil {
		slog.Error("Failed to open entry store", "type", cfg.Store.Type, "err", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Entry store ready", "type", persistence.Describe(store), "sql", persistence.IsSQL(store))

	if !cfg.Client.IsConfigured() {
		if config.IsProduction() || !persistence.IsInMemory(store) {
			slog.Error("OXTRUST_CLIENT_ENCRYPTION_KEY is required for persistent stores and in production")
			os.Exit(1)
		}
		cfg.Client.EncryptionKey = generateEncryptionKey()
		slog.Warn("Client encryption key auto-generated - secrets will not survive a restart")
	}

	services, err := initializeServices(ctx, store, &cfg)
	if err != nil {
		slog.Error("Failed to initialize services", "err", err)
		os.Exit(1)
	}

	interval, err := config.ParseDuration(cfg.HeartbeatInterval)
	if err != nil || interval <= 0 {
		interval = time.Minute
	}
	go services.applianceService.RunHeartbeat(ctx, interval)

	ja := adminauth.NewJWTAuth(cfg.JWT)
	limiter := ratelimit.NewMiddleware(cfg.RateLimit)
	go limiter.RunSweeper(ctx, 10*time.Minute)

	server := app.DefaultApp()
	setupRoutes(server.R, services, ja, limiter, &cfg)

	slog.Info(strings.Repeat("=", 60))
	slog.Info("oxTrust admin service ready",
		"organization", services.organizationService.DNForOrganization(),
		"appliance", services.applianceService.DNForAppliance(),
		"adminRoles", cfg.JWT.AdminRoleNames())
	slog.Info(strings.Repeat("=", 60))

	server.Run()
}

func openStore(ctx context.Context, storeCfg config.StoreConfig, dbCfg config.DatabaseConfig) (persistence.EntryStore, error) {
	var store persistence.EntryStore

	switch storeCfg.Type {
	case "inmem":
		store = persistence.NewInMemoryEntryStore()
	case "file":
		fs, err := persistence.NewFileEntryStore(storeCfg.DataDir)
		if err != nil {
			return nil, err
		}
		store = fs
	case "sqlite":
		ss, err := persistence.NewSQLiteEntryStore(ctx, storeCfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = ss
	case "postgres":
		pool, err := dbutils.NewDbPool(ctx, dbCfg.ToDbConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database %s:%d/%s: %w", dbCfg.Host, dbCfg.Port, dbCfg.Database, err)
		}
		ps, err := persistence.NewPostgresEntryStore(pool)
		if err != nil {
			return nil, err
		}
		if err := ps.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		store = ps
	default:
		return nil, fmt.Errorf("unsupported store type %q", storeCfg.Type)
	}

	if storeCfg.Metrics {
		store = persistence.NewInstrumentedEntryStore(store, persistence.NewStoreMetrics(prometheus.DefaultRegisterer))
	}
	return store, nil
}

func initializeServices(ctx context.Context, store persistence.EntryStore, cfg *Config) (*Services, error) {
	orgCfg := cfg.Organization
	applianceService := appliance.NewApplianceService(store, orgCfg.ApplianceInum, orgCfg.BaseDN)
	fallback := &cache.Config{
		Provider:      cache.ProviderType(cfg.Cache.Provider),
		RedisAddress:  cfg.Cache.RedisAddress,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
		DefaultTTL:    cache.Duration(cfg.Cache.TTL()),
	}
	if _, err := applianceService.EnsureAppliance(ctx, orgCfg.DisplayName+" appliance", fallback); err != nil {
		return nil, fmt.Errorf("failed to ensure appliance: %w", err)
	}

	cacheCfg := applianceService.ResolveCacheConfiguration(ctx)
	orgCache, err := cache.New[organization.Organization](ctx, cacheCfg)
	if err != nil {
		slog.Warn("Falling back to in-memory cache", "provider", cacheCfg.Provider, "err", err)
		orgCache = cache.NewMemoryCache[organization.Organization]()
	}

	organizationService := organization.NewOrganizationService(store, orgCache, cacheCfg.TTL(), orgCfg.Inum, orgCfg.BaseDN)
	if _, err := organizationService.EnsureOrganization(ctx, orgCfg.DisplayName); err != nil {
		return nil, fmt.Errorf("failed to ensure organization: %w", err)
	}

	scopeService := scope.NewScopeService(store, organizationService, scope.WithInumRetries(orgCfg.InumRetries))

	codec, err := oauthclient.NewEncryptionService(cfg.Client.EncryptionKey)
	if err != nil {
		return nil, err
	}
	clientService := oauthclient.NewClientService(store, organizationService, codec, oauthclient.WithInumRetries(orgCfg.InumRetries))

	seeds, err := oauthclient.LoadClientsFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load clients from environment: %w", err)
	}
	if len(seeds) > 0 {
		added, err := clientService.SeedClients(ctx, seeds)
		if err != nil {
			return nil, err
		}
		slog.Info("Clients seeded", "declared", len(seeds), "added", added)
	}

	engine, err := registration.NewCELEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to create script engine: %w", err)
	}
	interceptionService := registration.NewInterceptionService(organizationService, registration.NewRegistry(), engine)

	return &Services{
		store:               store,
		applianceService:    applianceService,
		healthChecker:       appliance.NewHealthChecker(applianceService),
		organizationService: organizationService,
		scopeService:        scopeService,
		clientService:       clientService,
		interceptionService: interceptionService,
	}, nil
}

func setupRoutes(r *chi.Mux, services *Services, ja *jwtauth.JWTAuth, limiter *ratelimit.Middleware, cfg *Config) {
	app.RoutesHealthz(r)
	app.RoutesHealthzReady(r)
	r.Handle("/metrics", promhttp.Handler())

	applianceHandle := applianceapi.NewHandle(services.applianceService, services.healthChecker)

	// Public appliance health for load balancers
	r.Get("/api/appliance/health", applianceHandle.CheckHealth)

	r.Group(func(r chi.Router) {
		r.Use(limiter.ByIP)
		r.Use(adminauth.Verifier(ja))
		r.Use(jwtauth.Authenticator(ja))
		r.Use(adminauth.AdminUserMiddleware)
		r.Use(limiter.ByUser)
		r.Use(audit.NewMiddleware(audit.LogSink{}).Handler)
		r.Use(adminauth.RequireRole(cfg.JWT.AdminRoleNames()...))

		r.Mount("/api/scopes", scopeapi.Routes(scopeapi.NewHandle(services.scopeService)))
		r.Mount("/api/clients", oauthclientapi.Routes(oauthclientapi.NewHandle(services.clientService)))
		r.Mount("/api/appliance", applianceapi.Routes(applianceHandle))
		r.Mount("/api/registration", registrationapi.Routes(registrationapi.NewHandle(services.organizationService, services.interceptionService)))
	})
}

func generateEncryptionKey() string {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		slog.Error("Failed to generate encryption key", "err", err)
		os.Exit(1)
	}
	return fmt.Sprintf("%x", key)
}

// loadEnvFile loads environment variables from .env file if it exists
func loadEnvFile() {
	execPath, err := os.Executable()
	if err != nil {
		return
	}

	envFile := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		cwd, _ := os.Getwd()
		envFile = filepath.Join(cwd, ".env")
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Debug("No .env file found (using environment variables or defaults)")
		return
	}

	slog.Info("Loading configuration from .env file", "path", envFile)
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("Failed to load .env file", "err", err)
	}
}
