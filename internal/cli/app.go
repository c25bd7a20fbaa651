package cli

import (
	"context"
	"strings"

	"github.com/rileyhilliard/nekowatch/internal/config"
	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/host"
	"github.com/rileyhilliard/nekowatch/internal/logger"
	"github.com/rileyhilliard/nekowatch/internal/notify"
	"github.com/rileyhilliard/nekowatch/internal/store"
	"github.com/rileyhilliard/nekowatch/internal/store/postgres"
	"github.com/rileyhilliard/nekowatch/pkg/sshutil"
)

// app holds the long-lived components a command works with.
type app struct {
	cfg      *config.Config
	store    store.Store
	registry host.Registry
	db       *postgres.DB
	pool     *sshutil.Pool
}

// openApp connects the configured backends. With a database DSN both the
// registry and history live in Postgres; otherwise hosts come from the
// hosts file and history is kept in memory.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	if cfg.Database.DSN != "" {
		db, err := postgres.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.store = db
		a.registry = db.Registry()
	} else {
		if cfg.HostsFile == "" {
			return nil, errors.New(errors.ErrConfig,
				"No host registry configured",
				"Set hosts_file or database.dsn in nekowatch.yaml")
		}
		a.store = store.NewMemory()
		a.registry = host.NewFileRegistry(cfg.HostsFile)
	}

	a.pool = sshutil.NewPool(sshutil.NewDialer(sshutil.Options{
		ConnectTimeout:        cfg.SSH.ConnectTimeout,
		StrictHostKeyChecking: cfg.SSH.StrictHostKeyChecking,
		KnownHosts:            cfg.SSH.KnownHosts,
	}), logger.NewEnvLogger("[ssh]"))

	return a, nil
}

// Close releases SSH sessions and the store.
func (a *app) Close() error {
	_ = a.pool.Close()
	return a.store.Close()
}

// requireDB fails for commands that only make sense with persistent storage.
func (a *app) requireDB(what string) (*postgres.DB, error) {
	if a.db == nil {
		return nil, errors.New(errors.ErrConfig,
			what+" needs a database",
			"Set database.dsn in nekowatch.yaml or NEKOWATCH_DATABASE_DSN")
	}
	return a.db, nil
}

// notifier builds the delivery chain: always the log, plus Telegram when a
// bot token is configured.
func (a *app) notifier() notify.Notifier {
	sinks := notify.Multi{notify.NewLog(logger.NewEnvLogger("[notify]"))}
	if tg := a.cfg.Notify.Telegram; tg.Token != "" {
		sinks = append(sinks, notify.NewTelegram(notify.TelegramConfig{
			APIBase: tg.APIBase,
			Token:   tg.Token,
			ChatID:  tg.ChatID,
			Rate:    a.cfg.Notify.Rate,
			Burst:   a.cfg.Notify.Burst,
		}, nil))
	}
	return sinks
}

// resolveHost finds a host by id, falling back to a case-insensitive match
// on its display name.
func resolveHost(ctx context.Context, reg host.Registry, ref string) (host.Host, error) {
	h, err := reg.Get(ctx, ref)
	if err == nil {
		return h, nil
	}
	if !errors.IsCode(err, errors.ErrInput) {
		return host.Host{}, err
	}

	hosts, listErr := reg.List(ctx)
	if listErr != nil {
		return host.Host{}, listErr
	}
	for _, h := range hosts {
		if strings.EqualFold(h.Name, ref) {
			return h, nil
		}
	}
	return host.Host{}, err
}
