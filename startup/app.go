package startup

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"mtaaspace/domain"
	"mtaaspace/logging"
	application "mtaaspace/service"
	"mtaaspace/startup/config"
	store2 "mtaaspace/store"
)

// App wires the whole core for the embedding view layer: one store backend,
// one auth backend, the four services and the change bus they publish on.
type App struct {
	Config     *config.Config
	Bus        *domain.ChangeBus
	Sessions   *application.SessionService
	Properties *application.PropertyService
	Favorites  *application.FavoritesService
	Inquiries  *application.InquiryService

	logger      *logrus.Logger
	kv          domain.KeyValueStore
	tp          *sdktrace.TracerProvider
	unsubscribe func()
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.LogInit(cfg.LogPath, "mtaaspace_core")

	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			MaxConnsPerHost:     10,
		},
	}

	app := &App{
		Config: cfg,
		Bus:    domain.NewChangeBus(),
		logger: logger,
	}

	tracer, err := app.initTracer(cfg)
	if err != nil {
		return nil, err
	}

	kv, err := app.initStore(cfg, httpClient, tracer)
	if err != nil {
		return nil, err
	}
	app.kv = kv

	authBackend, err := app.initAuthBackend(cfg, kv, httpClient)
	if err != nil {
		return nil, err
	}

	propertyStore, err := app.initPropertyStore(cfg, kv, httpClient, tracer)
	if err != nil {
		return nil, err
	}

	app.Sessions = application.NewSessionService(kv, authBackend, app.Bus, tracer, logger)
	app.Properties = application.NewPropertyService(propertyStore, app.Bus, tracer, logger)
	app.Favorites = application.NewFavoritesService(kv, app.Bus, logger)
	app.Inquiries = application.NewInquiryService(kv, app.Bus, logger)

	// Keep the favorites set scoped to whoever is logged in.
	app.unsubscribe = app.Bus.Subscribe(func(kind domain.ChangeKind) {
		if kind != domain.SessionChanged {
			return
		}
		userID := ""
		if session := app.Sessions.Current(); session != nil {
			userID = session.User.ID
		}
		app.Favorites.Bind(context.Background(), userID)
	})
	if session := app.Sessions.Current(); session != nil {
		app.Favorites.Bind(context.Background(), session.User.ID)
	}

	return app, nil
}

func (app *App) initTracer(cfg *config.Config) (trace.Tracer, error) {
	if cfg.JaegerAddress == "" {
		return trace.NewNoopTracerProvider().Tracer("mtaaspace_core"), nil
	}

	exp, err := newExporter(cfg.JaegerAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize exporter: %w", err)
	}

	app.tp = newTraceProvider(exp)
	otel.SetTracerProvider(app.tp)
	return app.tp.Tracer("mtaaspace_core"), nil
}

func (app *App) initStore(cfg *config.Config, httpClient *http.Client, tracer trace.Tracer) (domain.KeyValueStore, error) {
	switch cfg.StoreBackend {
	case "redis":
		client, err := store2.GetRedisClient(cfg.RedisHost, cfg.RedisPort)
		if err != nil {
			return nil, err
		}
		redisStore := store2.NewRedisStore(client, tracer)
		redisStore.Ping()
		return redisStore, nil
	case "mongo":
		client, err := store2.GetMongoClientWithHTTPConfig(cfg.MongoHost, cfg.MongoPort, httpClient)
		if err != nil {
			return nil, err
		}
		return store2.NewMongoStore(client), nil
	case "memory":
		return store2.NewMemoryStore(), nil
	case "file":
		return store2.NewFileStore(cfg.DataFile, app.logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func (app *App) initAuthBackend(cfg *config.Config, kv domain.KeyValueStore, httpClient *http.Client) (domain.AuthBackend, error) {
	switch cfg.AuthMode {
	case "remote":
		return application.NewRemoteAuthBackend(cfg.AuthServiceHost, cfg.AuthServicePort, httpClient, app.logger), nil
	case "local":
		return application.NewLocalAuthBackend(kv, []byte(cfg.SecretKey), cfg.TokenTTL, app.logger), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}
}

func (app *App) initPropertyStore(cfg *config.Config, kv domain.KeyValueStore, httpClient *http.Client, tracer trace.Tracer) (domain.PropertyStore, error) {
	switch cfg.PropertyMode {
	case "remote":
		return store2.NewPropertyRemoteStore(cfg.PropertyServiceHost, cfg.PropertyServicePort, httpClient, tracer), nil
	case "local":
		return store2.NewPropertyKVStore(kv, app.logger), nil
	default:
		return nil, fmt.Errorf("unknown property mode %q", cfg.PropertyMode)
	}
}

// Close releases clients and flushes pending trace spans.
func (app *App) Close() {
	if app.unsubscribe != nil {
		app.unsubscribe()
	}
	if app.kv != nil {
		if err := app.kv.Close(); err != nil {
			app.logger.Printf("error closing store: %v", err)
		}
	}
	if app.tp != nil {
		if err := app.tp.Shutdown(context.Background()); err != nil {
			app.logger.Printf("error shutting down tracer provider: %v", err)
		}
	}
}
