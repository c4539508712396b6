package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/canonengine/canonengine/internal/db"
	"github.com/canonengine/canonengine/internal/logger"
	"github.com/canonengine/canonengine/internal/server"
)

// App is the process-wide handle: logger, DB, wired canon-engine
// components, HTTP router, and the background flush worker's cancel
// function.
type App struct {
	Log    *logger.Logger
	DB     *gorm.DB
	Router *gin.Engine
	Cfg    Config
	Repos  Repos
	Comps  Components

	cancel context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	repos := wireRepos(theDB, log)

	comps, err := wireComponents(log, theDB, cfg, repos)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("wire canon components: %w", err)
	}

	handlerSet := wireHandlers(log, comps)
	middlewareSet := wireMiddleware(log, cfg)
	router := server.NewRouter(server.RouterConfig{
		CanonHandler:    handlerSet.Canon,
		KeyCanonHandler: handlerSet.KeyCanon,
		AuthMiddleware:  middlewareSet.Auth,
	})

	return &App{
		Log:    log,
		DB:     theDB,
		Router: router,
		Cfg:    cfg,
		Repos:  repos,
		Comps:  comps,
	}, nil
}

// Start launches the background flush worker when RUN_FLUSH_WORKER is
// enabled: a safety net that durably flushes the ontology store's
// write-behind buffer on a fixed cadence, independent of any one
// listing-ingest request triggering Store.FlushToDB itself.
func (a *App) Start(runFlushWorker bool) {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	if !runFlushWorker {
		return
	}
	go func() {
		ticker := time.NewTicker(flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := a.Comps.Store.FlushToDB(ctx)
				if err != nil {
					a.Log.Warn("background ontology flush failed", "error", err)
					continue
				}
				if n > 0 {
					a.Log.Info("background ontology flush complete", "flushed", n)
				}
			}
		}
	}()
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Comps.Store != nil {
		if n, err := a.Comps.Store.FlushToDB(context.Background()); err != nil {
			a.Log.Warn("final ontology flush failed", "error", err)
		} else if n > 0 {
			a.Log.Info("final ontology flush complete", "flushed", n)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
