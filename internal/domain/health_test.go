package domain_test

import (
	"testing"

	"github.com/doeshing/nlsh/internal/domain"
)

func TestHealthReport_Counts(t *testing.T) {
	report := domain.HealthReport{Checks: []domain.HealthCheck{
		{Name: "Config file", Status: domain.HealthOK},
		{Name: "Clipboard", Status: domain.HealthWarn},
		{Name: "Credentials", Status: domain.HealthOK},
	}}

	if got := report.Count(domain.HealthOK); got != 2 {
		t.Errorf("Count(ok) = %d, want 2", got)
	}
	if !report.Healthy() {
		t.Error("warnings alone should leave the report healthy")
	}

	report.Checks = append(report.Checks, domain.HealthCheck{Name: "State directory", Status: domain.HealthError})
	if report.Healthy() {
		t.Error("a failed check should make the report unhealthy")
	}
}
