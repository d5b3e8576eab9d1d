package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/DivEden/DGB/cmd/migrate"
	"github.com/DivEden/DGB/internal/cache"
	"github.com/DivEden/DGB/internal/config"
	"github.com/DivEden/DGB/internal/objstore"
	"github.com/DivEden/DGB/internal/queue"
	"github.com/DivEden/DGB/internal/redisholder"
	"github.com/DivEden/DGB/internal/repository/storage"
	"github.com/DivEden/DGB/internal/tokens"
	"github.com/DivEden/DGB/internal/transport/handler"
	"github.com/DivEden/DGB/internal/transport/router"
	use_case "github.com/DivEden/DGB/internal/use-case"
)

const statusTTL = 24 * time.Hour

type App struct {
	HttpServer *http.Server
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	err := migrate.Migrate(cfg.Database.DSN, migrate.Migrations)
	if err != nil {
		return nil, err
	}

	repo, err := storage.New(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	holder, err := redisholder.Build(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	rc := holder.Get()
	tokenStore := tokens.NewManager(rc)
	statusCache := cache.NewCache("dgb:batches", rc, statusTTL)

	store, err := objstore.NewStore(&cfg.Storage)
	if err != nil {
		return nil, err
	}

	producer := queue.Init(ctx, rc, cfg.Archive, store)

	uc := use_case.New(repo, store, statusCache, tokenStore, producer, cfg.Compress)

	h := handler.New(uc, cfg)
	r := router.NewRouter(h)

	s := &http.Server{
		Handler:      r,
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout * time.Second,
		WriteTimeout: cfg.Server.WriteTimeout * time.Second,
	}

	return &App{
		HttpServer: s,
	}, nil
}

func (a *App) Run() error {
	log.Printf("starting server")
	return a.HttpServer.ListenAndServe()
}
