package main

import (
	"context"
	"fmt"

	"github.com/banshee-data/rally.report/internal/api"
	"github.com/banshee-data/rally.report/internal/db"
	"github.com/banshee-data/rally.report/internal/storage"
	"github.com/banshee-data/rally.report/internal/storage/clickhouse"
	"github.com/banshee-data/rally.report/internal/storage/memory"
	"github.com/banshee-data/rally.report/internal/storage/postgres"
	"github.com/banshee-data/rally.report/internal/storage/sqlite"
)

// store bundles the selected run store with its admin routes and closer.
type store struct {
	storage.AnalysisStore
	admin api.AdminRoutes
	close func()
}

func (s *store) Close() {
	if s.close != nil {
		s.close()
	}
}

func openStore(ctx context.Context, kind, dbPath, pgDSN string) (*store, error) {
	switch kind {
	case "memory":
		return &store{AnalysisStore: memory.NewAnalysisStore()}, nil

	case "sqlite":
		database, err := db.NewDB(dbPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database %s: %w", dbPath, err)
		}
		return &store{
			AnalysisStore: sqlite.NewAnalysisStore(database.DB),
			admin:         database,
			close:         func() { database.Close() },
		}, nil

	case "postgres":
		if pgDSN == "" {
			return nil, fmt.Errorf("-pg-dsn is required for the postgres store")
		}
		pool, err := postgres.NewPool(ctx, pgDSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &store{AnalysisStore: postgres.NewAnalysisStore(pool), close: pool.Close}, nil
	}
	return nil, fmt.Errorf("unknown store %q (want sqlite, postgres or memory)", kind)
}

// openSink connects the optional ClickHouse trajectory export. An empty DSN
// disables it.
func openSink(ctx context.Context, dsn string) (storage.TrajectorySink, func(), error) {
	if dsn == "" {
		return nil, func() {}, nil
	}
	conn, err := clickhouse.NewConn(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := clickhouse.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return clickhouse.NewTrajectorySink(conn), func() { conn.Close() }, nil
}
