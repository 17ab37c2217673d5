package doctor

import (
	"context"
	"fmt"
	"os"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/ports"
)

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider   ports.ConfigProvider
	Resolver         ports.ProviderResolver
	ContextCollector ports.ContextCollector
	Clipboard        ports.Clipboard
	StateDir         string
}

// Run executes checks and returns a report. The error is non-nil when any
// check failed outright.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, ok("Config file", fmt.Sprintf("loaded (format %s)", cfg.ConfigFormatVersion)))
	checks = append(checks, credentialCheck(cfg))

	if s.Resolver != nil {
		if providers, err := s.Resolver.AvailableProviders(ctx); err != nil {
			checks = append(checks, warn("Provider catalog", err.Error()))
		} else {
			checks = append(checks, ok("Provider catalog", fmt.Sprintf("%d providers available", len(providers))))
		}
	}

	if s.ContextCollector != nil && cfg.ContextEnabled() {
		if snapshot, err := s.ContextCollector.Collect(ctx); err == nil {
			checks = append(checks, ok("Context collector", fmt.Sprintf("shell %s in %s", snapshot.Shell, snapshot.WorkingDir)))
		} else {
			checks = append(checks, warn("Context collector", err.Error()))
		}
	}

	if s.Clipboard != nil && s.Clipboard.Enabled() {
		checks = append(checks, ok("Clipboard", "available"))
	} else {
		checks = append(checks, warn("Clipboard", "unavailable (install xclip, xsel or wl-clipboard)"))
	}

	checks = append(checks, s.stateDirCheck())

	report := domain.HealthReport{Checks: checks}
	if n := report.Count(domain.HealthError); n > 0 {
		return report, fmt.Errorf("%d checks failed", n)
	}
	return report, nil
}

func credentialCheck(cfg domain.Config) domain.HealthCheck {
	provider := cfg.ActiveProviderName()
	if !domain.RequiresAPIKey(provider) {
		return ok("API key", fmt.Sprintf("%s needs no API key", provider))
	}
	if cfg.APIKeyFor(provider) == "" {
		return fail("API key", fmt.Sprintf("no credential for %s (set %s or providers.%s.api_key)",
			provider, domain.DefaultAPIKeyEnv(provider), provider))
	}
	return ok("API key", fmt.Sprintf("found for %s", provider))
}

func (s *Service) stateDirCheck() domain.HealthCheck {
	if s.StateDir == "" {
		return warn("State directory", "not configured")
	}
	if err := os.MkdirAll(s.StateDir, domain.DirectoryPermissions); err != nil {
		return fail("State directory", err.Error())
	}
	probe, err := os.CreateTemp(s.StateDir, ".doctor-*")
	if err != nil {
		return fail("State directory", fmt.Sprintf("%s is not writable: %v", s.StateDir, err))
	}
	probe.Close()
	os.Remove(probe.Name())
	return ok("State directory", s.StateDir)
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
