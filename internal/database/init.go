package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const pingTimeout = 10 * time.Second

// InitMailbridgeDatabase opens the pool and checks the server is reachable.
func InitMailbridgeDatabase(dbConfig *DatabaseConfig) (*gorm.DB, error) {
	db, err := NewConnection(dbConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to the database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, errors.Wrapf(err, "database %s:%s unreachable", dbConfig.Host, dbConfig.Port)
	}

	return db, nil
}
