package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

func Validate(cfg Config) error {
	var errs []string

	if cfg.App.Port <= 0 || cfg.App.Port > 65535 {
		errs = append(errs, "app.port must be 1..65535")
	}

	if len(cfg.Search.Roles) == 0 {
		errs = append(errs, "search.roles must have at least 1 term")
	}
	if cfg.Search.MaxPages <= 0 {
		errs = append(errs, "search.max_pages must be > 0")
	}
	for i, r := range cfg.Search.Regions {
		if strings.TrimSpace(r) == "" {
			errs = append(errs, fmt.Sprintf("search.regions[%d] cannot be empty", i))
		}
	}

	if cfg.Apply.MaxPerRun <= 0 {
		errs = append(errs, "apply.max_per_run must be > 0")
	}
	if cfg.Apply.MaxAttempts <= 0 {
		errs = append(errs, "apply.max_attempts must be > 0")
	}
	if strings.TrimSpace(cfg.Apply.SessionDomain) == "" {
		errs = append(errs, "apply.session_domain is required")
	}
	if strings.TrimSpace(cfg.Apply.SessionCookie) == "" {
		errs = append(errs, "apply.session_cookie is required")
	}

	if cfg.Sources.JobAlerts.Enabled {
		if strings.TrimSpace(cfg.Sources.JobAlerts.IMAPHost) == "" {
			errs = append(errs, "sources.jobalerts.imap_host is required when jobalerts is enabled")
		}
		if cfg.Sources.JobAlerts.IMAPPort == 0 {
			errs = append(errs, "sources.jobalerts.imap_port is required when jobalerts is enabled")
		}
		if strings.TrimSpace(cfg.Sources.JobAlerts.Username) == "" {
			errs = append(errs, "sources.jobalerts.username is required when jobalerts is enabled")
		}
		if strings.TrimSpace(cfg.Sources.JobAlerts.Mailbox) == "" {
			errs = append(errs, "sources.jobalerts.mailbox is required when jobalerts is enabled")
		}
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

func SaveAtomic(path string, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	bak := path + ".bak"

	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}

	_ = os.Remove(bak)
	_ = os.Rename(path, bak)

	return os.Rename(tmp, path)
}
