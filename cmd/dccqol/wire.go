package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dccqol/internal/automation"
	"github.com/cory-johannsen/dccqol/internal/config"
	"github.com/cory-johannsen/dccqol/internal/game/dice"
	"github.com/cory-johannsen/dccqol/internal/game/ruleset"
	"github.com/cory-johannsen/dccqol/internal/journal"
	"github.com/cory-johannsen/dccqol/internal/scripting"
	"github.com/cory-johannsen/dccqol/internal/storage/postgres"
	storeredis "github.com/cory-johannsen/dccqol/internal/storage/redis"
)

// buildService composes the automation service from cfg. The returned cleanup
// releases every connection and VM it opened.
func buildService(ctx context.Context, cfg config.Config, logger *zap.Logger) (*automation.Service, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*automation.Service, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	start := time.Now()
	rs, err := ruleset.Load(cfg.Ruleset.Dir)
	if err != nil {
		return fail(fmt.Errorf("loading ruleset: %w", err))
	}
	logger.Debug("ruleset loaded",
		zap.String("dir", cfg.Ruleset.Dir),
		zap.Int("weapons", len(rs.Weapons.AllWeapons())),
		zap.Duration("elapsed", time.Since(start)),
	)

	src := dice.NewCryptoSource()
	if cfg.Dice.Seed != 0 {
		src = dice.NewSeededSource(cfg.Dice.Seed)
	}
	roller := dice.NewLoggedRoller(src, logger)

	store, closeStore, err := openJournal(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeStore)

	var scripts *scripting.Manager
	if cfg.Scripting.Dir != "" {
		scripts = scripting.NewManager(roller, logger)
		closers = append(closers, scripts.Close)
		if err := loadScripts(scripts, cfg.Scripting); err != nil {
			return fail(err)
		}
	}

	svc, err := automation.NewService(automation.Deps{
		Ruleset:   rs,
		Settings:  cfg.EngineSettings(),
		Evaluator: roller,
		Source:    src,
		Logger:    logger,
		Journal:   store,
		Scripts:   scripts,
	})
	if err != nil {
		return fail(err)
	}
	return svc, cleanup, nil
}

func openJournal(ctx context.Context, cfg config.Config, logger *zap.Logger) (journal.Store, func(), error) {
	switch cfg.Journal.Backend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		logger.Info("journal connected", zap.String("backend", "postgres"), zap.String("host", cfg.Database.Host))
		return postgres.NewJournalRepository(pool.DB()), pool.Close, nil
	case "redis":
		client, err := storeredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		repo, err := storeredis.NewJournalRepository(&storeredis.JournalConfig{
			Client:    client,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Journal.TTL,
		})
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		logger.Info("journal connected", zap.String("backend", "redis"), zap.String("addr", cfg.Redis.Addr))
		return repo, func() { _ = client.Close() }, nil
	default:
		return journal.NewMemoryStore(cfg.Journal.TTL), func() {}, nil
	}
}

// loadScripts loads top-level *.lua files into the global VM and each
// subdirectory as the scene of the same name.
func loadScripts(m *scripting.Manager, cfg config.ScriptingConfig) error {
	entries, err := os.ReadDir(cfg.Dir)
	if err != nil {
		return fmt.Errorf("reading scripting dir: %w", err)
	}
	var errs []error
	if err := m.LoadGlobal(cfg.Dir, cfg.InstructionLimit); err != nil {
		errs = append(errs, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := m.LoadScene(e.Name(), filepath.Join(cfg.Dir, e.Name()), cfg.InstructionLimit); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
