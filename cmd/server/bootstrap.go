package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowdsource-ideas/internal/app"
	"github.com/iliyamo/crowdsource-ideas/internal/config"
	"github.com/iliyamo/crowdsource-ideas/internal/database"
	"github.com/iliyamo/crowdsource-ideas/internal/logging"
)

// env is what every command starts from.
type env struct {
	cfg config.Config
	log *logrus.Logger
	db  *sql.DB
}

func setup() (*env, error) {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

func (e *env) close() { _ = e.db.Close() }

func openDB(cfg config.Config) (*sql.DB, error) {
	if cfg.DBDriver == "sqlite" {
		db, err := database.OpenSQLite("file:" + cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.DBPath, err)
		}
		return db, nil
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return db, nil
}

func (e *env) migrate(ctx context.Context) error {
	return database.Migrate(ctx, e.db, database.Dialect(e.cfg.DBDriver))
}

// offline assembles the services without Redis or outgoing mail, for
// maintenance commands.
func (e *env) offline() *app.App {
	return app.New(app.Options{Config: e.cfg, Cache: config.CacheConfig{}, DB: e.db, Log: e.log})
}
