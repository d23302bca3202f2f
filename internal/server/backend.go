package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pthm/openwire/internal/config"
	"github.com/pthm/openwire/lib/state"
)

// OpenBackend opens the state backend cfg names. The returned closer
// releases it; for the memory backend it does nothing.
func OpenBackend(ctx context.Context, cfg config.State) (state.Backend, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return state.NewMemoryBackend(), nopCloser{}, nil
	case config.BackendRedis:
		b, err := state.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	case config.BackendSQLite:
		b, err := state.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	default:
		return nil, nil, fmt.Errorf("server: unknown state backend %q", cfg.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type purger interface {
	Purge(ctx context.Context) (int64, error)
}

// janitor purges expired rows from backends that keep them, until ctx is
// cancelled.
func janitor(ctx context.Context, b state.Backend, every time.Duration, logger *slog.Logger) {
	p, ok := b.(purger)
	if !ok {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.Purge(ctx)
			if err != nil {
				logger.Warn("purge expired state", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("purged expired state", "rows", n)
			}
		}
	}
}
