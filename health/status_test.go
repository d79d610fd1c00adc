package health

import (
	"testing"
	"time"

	"github.com/c360/wordstream/component"
)

func TestStatus_StateChecks(t *testing.T) {
	tests := []struct {
		name          string
		status        Status
		wantHealthy   bool
		wantDegraded  bool
		wantUnhealthy bool
	}{
		{
			name:        "healthy",
			status:      Status{Status: StateHealthy},
			wantHealthy: true,
		},
		{
			name:          "unhealthy",
			status:        Status{Status: StateUnhealthy},
			wantUnhealthy: true,
		},
		{
			name:         "degraded",
			status:       Status{Status: StateDegraded},
			wantDegraded: true,
		},
		{
			name:   "empty",
			status: Status{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsHealthy(); got != tt.wantHealthy {
				t.Errorf("IsHealthy() = %v, want %v", got, tt.wantHealthy)
			}
			if got := tt.status.IsDegraded(); got != tt.wantDegraded {
				t.Errorf("IsDegraded() = %v, want %v", got, tt.wantDegraded)
			}
			if got := tt.status.IsUnhealthy(); got != tt.wantUnhealthy {
				t.Errorf("IsUnhealthy() = %v, want %v", got, tt.wantUnhealthy)
			}
		})
	}
}

func TestStatus_WithMetrics(t *testing.T) {
	original := NewHealthy("socket-input", "connected")
	metrics := &Metrics{Uptime: time.Minute, ErrorCount: 2}

	updated := original.WithMetrics(metrics)

	if updated.Metrics != metrics {
		t.Error("WithMetrics should attach the metrics")
	}
	if original.Metrics != nil {
		t.Error("WithMetrics should not mutate the original")
	}
}

func TestStatus_WithSubStatus(t *testing.T) {
	parent := NewHealthy("pipeline", "running")
	child := NewUnhealthy("socket-input", "dial failed")

	updated := parent.WithSubStatus(child)

	if len(updated.SubStatuses) != 1 {
		t.Fatalf("expected 1 sub-status, got %d", len(updated.SubStatuses))
	}
	if updated.SubStatuses[0].Component != "socket-input" {
		t.Errorf("unexpected sub-status component %q", updated.SubStatuses[0].Component)
	}
	if len(parent.SubStatuses) != 0 {
		t.Error("WithSubStatus should not mutate the original")
	}

	// Appending to the copy must not leak into a sibling copy
	sibling := parent.WithSubStatus(NewDegraded("wordcount", "slow"))
	if sibling.SubStatuses[0].Component != "wordcount" {
		t.Error("sibling copies should not share sub-status storage")
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "nats url",
			input: "dial nats://localhost:4222 failed",
			want:  "dial [URL] failed",
		},
		{
			name:  "http url",
			input: "request to https://example.com/api failed",
			want:  "request to [URL] failed",
		},
		{
			name:  "unix path",
			input: "open /etc/wordstream/config.json failed",
			want:  "open [PATH] failed",
		},
		{
			name:  "ip and port",
			input: "connect 192.168.1.100:9999 refused",
			want:  "connect [IP][PORT] refused",
		},
		{
			name:  "credentials",
			input: "auth failed: password=hunter2",
			want:  "auth failed: [REDACTED]",
		},
		{
			name:  "plain message untouched",
			input: "window behind schedule",
			want:  "window behind schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeErrorMessage(tt.input); got != tt.want {
				t.Errorf("sanitizeErrorMessage(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFromComponentHealth(t *testing.T) {
	now := time.Now()

	healthy := component.HealthStatus{
		Healthy:   true,
		LastCheck: now,
		Uptime:    time.Minute,
	}

	status := FromComponentHealth("socket-input", healthy)
	if !status.IsHealthy() {
		t.Error("expected healthy status")
	}
	if status.Component != "socket-input" {
		t.Errorf("unexpected component %q", status.Component)
	}
	if status.Metrics == nil || status.Metrics.Uptime != time.Minute {
		t.Error("expected metrics with uptime")
	}

	unhealthy := component.HealthStatus{
		Healthy:    false,
		LastError:  "dial tcp 10.0.0.5:9999: connection refused",
		ErrorCount: 3,
	}

	status = FromComponentHealth("socket-input", unhealthy)
	if !status.IsUnhealthy() {
		t.Error("expected unhealthy status")
	}
	if status.Message == unhealthy.LastError {
		t.Error("error message should be sanitized")
	}
	if status.Metrics.ErrorCount != 3 {
		t.Errorf("expected error count 3, got %d", status.Metrics.ErrorCount)
	}
}
