package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"jobpilot/internal/aggregate"
	"jobpilot/internal/config"
	"jobpilot/internal/domain"
	"jobpilot/internal/runlog"
	"jobpilot/internal/secrets"
	"jobpilot/internal/source"
	"jobpilot/internal/source/adzuna"
	"jobpilot/internal/source/jobalerts"
	"jobpilot/internal/source/reed"
	"jobpilot/internal/source/remoteok"
	"jobpilot/internal/source/remotive"
	"jobpilot/internal/source/themuse"
	"jobpilot/internal/source/util"
	"jobpilot/internal/store"
)

// app bundles the pieces every command needs. Commands that only read config
// (secrets) skip openStore.
type app struct {
	Cfg     config.Config
	CfgPath string
	DataDir string
	DB      *store.DB
	RunLog  *runlog.Writer
}

func dataDir() string {
	if d := os.Getenv("JOBPILOT_DATA_DIR"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jobpilot"
	}
	return filepath.Join(home, ".jobpilot")
}

func loadApp() (*app, error) {
	dir := dataDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	cfgPath, err := config.EnsureUserConfig(dir, "config/config.yml")
	if err != nil {
		return nil, fmt.Errorf("bootstrap config: %w", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", cfgPath, err)
	}
	if cfg.App.DataDir == "" {
		cfg.App.DataDir = dir
	}

	return &app{
		Cfg:     cfg,
		CfgPath: cfgPath,
		DataDir: cfg.App.DataDir,
		RunLog:  runlog.New(filepath.Join(cfg.App.DataDir, "runs")),
	}, nil
}

func (a *app) openStore() error {
	db, err := store.Open(filepath.Join(a.DataDir, "leads.db"))
	if err != nil {
		return err
	}
	if err := store.Migrate(db.Pool); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	a.DB = db
	return nil
}

func (a *app) close() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.Printf("[store] close: %v", err)
		}
	}
}

// adapters builds the enabled source adapters. Missing optional keys degrade
// rather than fail: adzuna runs unauthenticated, reed is skipped entirely
// because its API refuses anonymous calls.
func (a *app) adapters() []source.Adapter {
	cfg := a.Cfg
	limiter := util.NewHostLimiter(1.0, 2)
	var out []source.Adapter

	if cfg.Sources.Adzuna.Enabled {
		out = append(out, adzuna.New(adzuna.Config{
			AppID:    secrets.Get(secrets.AccountAdzunaID),
			AppKey:   secrets.Get(secrets.AccountAdzunaKey),
			MaxPages: cfg.Search.MaxPages,
		}, limiter))
	}
	if cfg.Sources.Remotive.Enabled {
		out = append(out, remotive.New(remotive.Config{}, limiter))
	}
	if cfg.Sources.RemoteOK.Enabled {
		out = append(out, remoteok.New(remoteok.Config{}, limiter))
	}
	if cfg.Sources.Reed.Enabled {
		key := secrets.Get(secrets.AccountReedKey)
		if key == "" {
			log.Printf("[sources] reed enabled but no api key stored, skipping")
		} else {
			out = append(out, reed.New(reed.Config{APIKey: key}, limiter))
		}
	}
	if cfg.Sources.TheMuse.Enabled {
		out = append(out, themuse.New(themuse.Config{}, limiter))
	}
	if cfg.Sources.JobAlerts.Enabled {
		pw := secrets.Get(secrets.AccountIMAPPassword)
		if pw == "" {
			log.Printf("[sources] jobalerts enabled but no imap password stored, skipping")
		} else {
			out = append(out, jobalerts.New(cfg.Sources.JobAlerts, pw))
		}
	}
	return out
}

func (a *app) runner() *aggregate.Runner {
	return &aggregate.Runner{
		Store:    a.DB,
		Cfg:      a.Cfg,
		Adapters: a.adapters(),
		Norm:     domain.NewNormalizer(a.Cfg.Dedup.CompanySuffixes),
	}
}

// snapshotLeads writes the post-run leads snapshot. Failures only cost the
// audit artifact, never the run.
func snapshotLeads(ctx context.Context, a *app) string {
	leads, err := a.DB.List(ctx, store.ListOpts{})
	if err != nil {
		log.Printf("[runlog] snapshot query: %v", err)
		return ""
	}
	path, err := a.RunLog.Snapshot(leads)
	if err != nil {
		log.Printf("[runlog] snapshot write: %v", err)
		return ""
	}
	return path
}

// regionsArg resolves --region flags against configured search regions.
func (a *app) regionsArg(flags []string) ([]domain.Region, error) {
	if len(flags) == 0 {
		var out []domain.Region
		for _, s := range a.Cfg.Search.Regions {
			r := domain.Region(s)
			if !domain.ValidRegion(r) {
				return nil, fmt.Errorf("config region %q is not recognised", s)
			}
			out = append(out, r)
		}
		if len(out) == 0 {
			out = domain.AllRegions
		}
		return out, nil
	}
	var out []domain.Region
	for _, s := range flags {
		r := domain.Region(s)
		if !domain.ValidRegion(r) {
			return nil, fmt.Errorf("unknown region %q", s)
		}
		out = append(out, r)
	}
	return out, nil
}
