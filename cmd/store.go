package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"kiosk-lottery/internal/config"
	"kiosk-lottery/internal/repositories"
	"kiosk-lottery/internal/repositories/mongodb"
	"kiosk-lottery/internal/repositories/sqlstore"

	"github.com/google/logger"
)

// openStore connects the draw history backend selected by Store.Driver.
func openStore(ctx context.Context, cfg config.StoreConfig) (repositories.DrawRecordRepository, error) {
	switch cfg.Driver {
	case "mongo":
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		store, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		logger.Infof("draw history in mongo database %s", cfg.MongoDatabase)
		return store, nil
	case "", "sqlite":
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create store dir: %w", err)
			}
		}
		fallthrough
	default:
		store, err := sqlstore.Open(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		logger.Infof("draw history in %s store", cfg.Driver)
		return store, nil
	}
}
