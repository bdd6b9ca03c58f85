package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sundaylabs/sunday-server/internal/config"
	"github.com/sundaylabs/sunday-server/internal/localstate"
	storepkg "github.com/sundaylabs/sunday-server/internal/store"
	storepg "github.com/sundaylabs/sunday-server/internal/store/postgres"
	storesqlite "github.com/sundaylabs/sunday-server/internal/store/sqlite"
)

// NewStore returns the configured store.Store. The local target runs on
// an embedded SQLite file; cloud targets connect to Postgres and apply
// the schema on startup.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			var err error
			path, err = localstate.DBPath()
			if err != nil {
				return nil, err
			}
		}
		st, err := storesqlite.New(path)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("path", path).Msg("sqlite store opened")
		return st, nil
	case "postgres":
		st, err := storepg.New(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		log.Debug().Msg("postgres store opened")
		return st, nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
