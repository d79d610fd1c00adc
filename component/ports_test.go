package component

import "testing"

func TestBuildPortFromDefinition(t *testing.T) {
	tests := []struct {
		name     string
		def      PortDefinition
		wantType string
	}{
		{
			name: "jetstream port",
			def: PortDefinition{
				Name:       "durable_lines",
				Type:       "jetstream",
				Subject:    "text.line.>",
				StreamName: "TEXT_LINES",
			},
			wantType: "jetstream",
		},
		{
			name: "request port with default timeout",
			def: PortDefinition{
				Name:    "status_api",
				Type:    "nats-request",
				Subject: "pipeline.status",
			},
			wantType: "nats-request",
		},
		{
			name: "plain nats port",
			def: PortDefinition{
				Name:      "lines_out",
				Subject:   "text.line",
				Interface: "text.line",
			},
			wantType: "nats",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := BuildPortFromDefinition(tt.def, DirectionOutput)

			if port.Name != tt.def.Name {
				t.Errorf("Expected name %s, got %s", tt.def.Name, port.Name)
			}
			if port.Direction != DirectionOutput {
				t.Errorf("Expected output direction, got %s", port.Direction)
			}
			if port.Config.Type() != tt.wantType {
				t.Errorf("Expected config type %s, got %s", tt.wantType, port.Config.Type())
			}
		})
	}
}

func TestBuildPortFromDefinitionRequestTimeout(t *testing.T) {
	port := BuildPortFromDefinition(PortDefinition{
		Name:    "status_api",
		Type:    "nats-request",
		Subject: "pipeline.status",
	}, DirectionInput)

	request, ok := port.Config.(NATSRequestPort)
	if !ok {
		t.Fatalf("Expected NATSRequestPort, got %T", port.Config)
	}
	if request.Timeout != "1s" {
		t.Errorf("Expected default timeout 1s, got %s", request.Timeout)
	}
}

func TestMergePortConfigs(t *testing.T) {
	defaults := []Port{
		{
			Name:      "lines_out",
			Direction: DirectionOutput,
			Config:    NATSPort{Subject: "text.line"},
		},
		{
			Name:      "counts_out",
			Direction: DirectionOutput,
			Config:    NATSPort{Subject: "text.counts"},
		},
	}

	overrides := []PortDefinition{
		{Name: "lines_out", Subject: "custom.lines"},
		{Name: "extra_out", Subject: "custom.extra"},
	}

	merged := MergePortConfigs(defaults, overrides, DirectionOutput)

	if len(merged) != 3 {
		t.Fatalf("Expected 3 ports, got %d", len(merged))
	}

	bySubject := make(map[string]string)
	for _, port := range merged {
		if natsPort, ok := port.Config.(NATSPort); ok {
			bySubject[port.Name] = natsPort.Subject
		}
	}

	if bySubject["lines_out"] != "custom.lines" {
		t.Errorf("Expected lines_out override, got %s", bySubject["lines_out"])
	}
	if bySubject["counts_out"] != "text.counts" {
		t.Errorf("Expected counts_out default, got %s", bySubject["counts_out"])
	}
	if bySubject["extra_out"] != "custom.extra" {
		t.Errorf("Expected extra_out addition, got %s", bySubject["extra_out"])
	}
}

func TestMergePortConfigsNoOverrides(t *testing.T) {
	defaults := []Port{
		{Name: "lines_out", Direction: DirectionOutput, Config: NATSPort{Subject: "text.line"}},
	}

	merged := MergePortConfigs(defaults, nil, DirectionOutput)
	if len(merged) != 1 || merged[0].Name != "lines_out" {
		t.Errorf("Expected defaults unchanged, got %+v", merged)
	}
}
