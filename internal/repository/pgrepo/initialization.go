package pgrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsdevblog/paperify-pay/internal/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const (
	connectAttempts      = 30
	connectRetryInterval = 3 * time.Second
	pingTimeout          = 5 * time.Second
)

// Connect открывает пул соединений и применяет миграции из migrationsDir. Пока база недоступна,
// попытки повторяются каждые connectRetryInterval, но не больше connectAttempts раз.
// Отмена ctx прерывает ожидание.
func Connect(ctx context.Context, migrationsDir, dsn string, l *logrus.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	log := logger.Component(l, "pgrepo").WithField("host", poolConfig.ConnConfig.Host)

	var pool *pgxpool.Pool
	for attempt := 1; ; attempt++ {
		pool, err = openPool(ctx, poolConfig)
		if err == nil {
			break
		}
		if attempt >= connectAttempts {
			return nil, fmt.Errorf("connect postgres after %d attempts: %w", attempt, err)
		}
		log.WithError(err).
			WithField("attempt", fmt.Sprintf("%d/%d", attempt, connectAttempts)).
			Warnf("postgres is not ready, retrying in %s", connectRetryInterval)

		timer := time.NewTimer(connectRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("connect postgres: %w", ctx.Err())
		case <-timer.C:
		}
	}

	if err = applyMigrations(migrationsDir, dsn); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("postgres connected, migrations applied")
	return pool, nil
}

func openPool(ctx context.Context, conf *pgxpool.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, conf.Copy())
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err = pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

func applyMigrations(dir, dsn string) error {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return fmt.Errorf("init migrations from %s: %w", dir, err)
	}
	defer m.Close()

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
