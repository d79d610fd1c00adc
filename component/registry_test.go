package component

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// mockComponent implements Discoverable for registry tests.
type mockComponent struct {
	name          string
	componentType string
	inputPorts    []Port
	outputPorts   []Port
	healthy       bool
}

func newMockComponent(name, componentType string) *mockComponent {
	return &mockComponent{
		name:          name,
		componentType: componentType,
		healthy:       true,
		inputPorts: []Port{
			{
				Name:        "input",
				Direction:   DirectionInput,
				Required:    true,
				Description: "Line input",
				Config:      NATSPort{Subject: "text.line"},
			},
		},
		outputPorts: []Port{
			{
				Name:        "output",
				Direction:   DirectionOutput,
				Required:    true,
				Description: "Count output",
				Config:      NATSPort{Subject: "text.counts"},
			},
		},
	}
}

func (m *mockComponent) Meta() Metadata {
	return Metadata{
		Name:        m.name,
		Type:        m.componentType,
		Description: "Mock component for registry tests",
		Version:     "1.0.0",
	}
}

func (m *mockComponent) InputPorts() []Port  { return m.inputPorts }
func (m *mockComponent) OutputPorts() []Port { return m.outputPorts }

func (m *mockComponent) ConfigSchema() ConfigSchema {
	return ConfigSchema{
		Properties: map[string]PropertySchema{
			"port": {Type: "int", Description: "Port number", Default: 9999},
		},
		Required: []string{"port"},
	}
}

func (m *mockComponent) Health() HealthStatus {
	return HealthStatus{
		Healthy:   m.healthy,
		LastCheck: time.Now(),
		Uptime:    time.Hour,
	}
}

func (m *mockComponent) DataFlow() FlowMetrics {
	return FlowMetrics{
		MessagesPerSecond: 10.0,
		BytesPerSecond:    1024.0,
		LastActivity:      time.Now(),
	}
}

func createMockComponent(rawConfig json.RawMessage, _ Dependencies) (Discoverable, error) {
	var config struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &config); err != nil {
			return nil, err
		}
	}
	if config.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if config.Type == "" {
		config.Type = "processor"
	}
	return newMockComponent(config.Name, config.Type), nil
}

func failingFactory(_ json.RawMessage, _ Dependencies) (Discoverable, error) {
	return nil, fmt.Errorf("factory failure")
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()

	if registry == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if registry.factories == nil {
		t.Error("factories map not initialized")
	}
	if registry.instances == nil {
		t.Error("instances map not initialized")
	}
	if len(registry.factories) != 0 {
		t.Error("factories should start empty")
	}
	if len(registry.instances) != 0 {
		t.Error("instances should start empty")
	}
}

func TestRegisterFactory(t *testing.T) {
	registry := NewRegistry()

	registration := &Registration{
		Name:        "wordcount",
		Type:        "processor",
		Protocol:    "internal",
		Domain:      "text",
		Description: "Counts words per batch window",
		Version:     "1.0.0",
		Factory:     createMockComponent,
	}

	if err := registry.RegisterFactory("wordcount", registration); err != nil {
		t.Fatalf("RegisterFactory failed: %v", err)
	}

	if err := registry.RegisterFactory("wordcount", registration); err == nil {
		t.Error("Expected error registering duplicate factory")
	}

	if err := registry.RegisterFactory("nil-factory", &Registration{}); err == nil {
		t.Error("Expected error registering nil factory function")
	}

	if err := registry.RegisterFactory("", registration); err == nil {
		t.Error("Expected error registering empty name")
	}
}

func TestRegisterWithConfig(t *testing.T) {
	registry := NewRegistry()

	err := registry.RegisterWithConfig(RegistrationConfig{
		Name:        "socket",
		Factory:     createMockComponent,
		Type:        "input",
		Protocol:    "tcp",
		Domain:      "text",
		Description: "TCP socket text line input",
		Version:     "1.0.0",
	})
	if err != nil {
		t.Fatalf("RegisterWithConfig failed: %v", err)
	}

	factories := registry.ListFactories()
	registration, ok := factories["socket"]
	if !ok {
		t.Fatal("socket factory not found")
	}
	if registration.Type != "input" {
		t.Errorf("Expected type input, got %s", registration.Type)
	}
	if registration.Protocol != "tcp" {
		t.Errorf("Expected protocol tcp, got %s", registration.Protocol)
	}
}

func TestCreateComponent(t *testing.T) {
	registry := NewRegistry()

	err := registry.RegisterWithConfig(RegistrationConfig{
		Name:    "wordcount",
		Factory: createMockComponent,
		Type:    "processor",
	})
	if err != nil {
		t.Fatalf("RegisterWithConfig failed: %v", err)
	}

	comp, err := registry.CreateComponent("wordcount", json.RawMessage(`{"name":"counter1"}`), Dependencies{})
	if err != nil {
		t.Fatalf("CreateComponent failed: %v", err)
	}
	if comp.Meta().Name != "counter1" {
		t.Errorf("Expected name counter1, got %s", comp.Meta().Name)
	}

	// Unknown factory
	if _, err := registry.CreateComponent("unknown", nil, Dependencies{}); err == nil {
		t.Error("Expected error for unknown factory")
	}

	// Factory error propagates
	if err := registry.RegisterWithConfig(RegistrationConfig{Name: "broken", Factory: failingFactory}); err != nil {
		t.Fatalf("RegisterWithConfig failed: %v", err)
	}
	if _, err := registry.CreateComponent("broken", nil, Dependencies{}); err == nil {
		t.Error("Expected error from failing factory")
	}
}

func TestCreateComponentTypeMismatch(t *testing.T) {
	registry := NewRegistry()

	// Registered as input, factory produces a processor.
	err := registry.RegisterWithConfig(RegistrationConfig{
		Name:    "mislabeled",
		Factory: createMockComponent,
		Type:    "input",
	})
	if err != nil {
		t.Fatalf("RegisterWithConfig failed: %v", err)
	}

	_, err = registry.CreateComponent("mislabeled", json.RawMessage(`{"name":"x","type":"processor"}`), Dependencies{})
	if err == nil {
		t.Error("Expected type mismatch error")
	}
}

func TestRegisterInstance(t *testing.T) {
	registry := NewRegistry()
	comp := newMockComponent("counter1", "processor")

	if err := registry.RegisterInstance("counter1", comp); err != nil {
		t.Fatalf("RegisterInstance failed: %v", err)
	}

	if err := registry.RegisterInstance("counter1", comp); err == nil {
		t.Error("Expected error registering duplicate instance")
	}

	if err := registry.RegisterInstance("nil-comp", nil); err == nil {
		t.Error("Expected error registering nil component")
	}

	if got := registry.Component("counter1"); got != comp {
		t.Error("Component did not return registered instance")
	}
	if got := registry.Component("missing"); got != nil {
		t.Error("Expected nil for missing instance")
	}
}

func TestUnregisterInstance(t *testing.T) {
	registry := NewRegistry()
	comp := newMockComponent("counter1", "processor")

	if err := registry.RegisterInstance("counter1", comp); err != nil {
		t.Fatalf("RegisterInstance failed: %v", err)
	}

	registry.UnregisterInstance("counter1")
	if got := registry.Component("counter1"); got != nil {
		t.Error("Expected instance to be removed")
	}

	// Unknown names are a no-op.
	registry.UnregisterInstance("missing")
}

func TestResourceConflicts(t *testing.T) {
	registry := NewRegistry()

	first := newMockComponent("listener1", "input")
	first.inputPorts = []Port{{
		Name:      "tcp_in",
		Direction: DirectionInput,
		Config:    NetworkPort{Protocol: "tcp", Host: "0.0.0.0", Port: 9999},
	}}

	second := newMockComponent("listener2", "input")
	second.inputPorts = first.inputPorts

	if err := registry.RegisterInstance("listener1", first); err != nil {
		t.Fatalf("RegisterInstance failed: %v", err)
	}

	err := registry.RegisterInstance("listener2", second)
	if err == nil {
		t.Fatal("Expected resource conflict error")
	}
	if !strings.Contains(err.Error(), "already claimed") {
		t.Errorf("Expected conflict message, got: %v", err)
	}

	// Releasing the first instance frees the address.
	registry.UnregisterInstance("listener1")
	if err := registry.RegisterInstance("listener2", second); err != nil {
		t.Errorf("Expected registration to succeed after release: %v", err)
	}
}

func TestGetComponentSchema(t *testing.T) {
	registry := NewRegistry()

	schema := ConfigSchema{
		Properties: map[string]PropertySchema{
			"host": {Type: "string", Description: "Host to connect to"},
		},
		Required: []string{"host"},
	}

	err := registry.RegisterWithConfig(RegistrationConfig{
		Name:    "socket",
		Factory: createMockComponent,
		Schema:  schema,
	})
	if err != nil {
		t.Fatalf("RegisterWithConfig failed: %v", err)
	}

	got, err := registry.GetComponentSchema("socket")
	if err != nil {
		t.Fatalf("GetComponentSchema failed: %v", err)
	}
	if len(got.Required) != 1 || got.Required[0] != "host" {
		t.Errorf("Expected required [host], got %v", got.Required)
	}

	if _, err := registry.GetComponentSchema("unknown"); err == nil {
		t.Error("Expected error for unknown factory")
	}
}

func TestListComponentTypes(t *testing.T) {
	registry := NewRegistry()

	for _, reg := range []RegistrationConfig{
		{Name: "socket", Factory: createMockComponent, Type: "input"},
		{Name: "wordcount", Factory: createMockComponent, Type: "processor"},
		{Name: "console", Factory: createMockComponent, Type: "output"},
		{Name: "websocket", Factory: createMockComponent, Type: "output"},
	} {
		if err := registry.RegisterWithConfig(reg); err != nil {
			t.Fatalf("RegisterWithConfig %s failed: %v", reg.Name, err)
		}
	}

	types := registry.ListComponentTypes()
	if len(types) != 3 {
		t.Errorf("Expected 3 distinct types, got %d: %v", len(types), types)
	}
}

func TestListAvailable(t *testing.T) {
	registry := NewRegistry()

	err := registry.RegisterWithConfig(RegistrationConfig{
		Name:        "console",
		Factory:     createMockComponent,
		Type:        "output",
		Protocol:    "internal",
		Domain:      "text",
		Description: "Prints batches to stdout",
		Version:     "1.0.0",
	})
	if err != nil {
		t.Fatalf("RegisterWithConfig failed: %v", err)
	}

	available := registry.ListAvailable()
	info, ok := available["console"]
	if !ok {
		t.Fatal("console not listed")
	}
	if info.Type != "output" || info.Domain != "text" {
		t.Errorf("Unexpected info: %+v", info)
	}
}

func TestValidateComponentName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple name", "socket", false},
		{"with hyphen", "word-count", false},
		{"with underscore", "word_count", false},
		{"with digits", "socket2", false},
		{"empty", "", true},
		{"leading digit", "2socket", true},
		{"leading hyphen", "-socket", true},
		{"spaces", "word count", true},
		{"path traversal", "../etc/passwd", true},
		{"too long", strings.Repeat("a", MaxStringLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateComponentName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateComponentName(%q) error = %v, wantErr %t", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateJSONSize(t *testing.T) {
	small := json.RawMessage(`{"host":"localhost"}`)
	if err := ValidateJSONSize(small); err != nil {
		t.Errorf("Expected small config to pass: %v", err)
	}

	big := json.RawMessage(strings.Repeat("a", MaxJSONSize+1))
	if err := ValidateJSONSize(big); err == nil {
		t.Error("Expected oversized config to fail")
	}
}

func TestValidatePortNumber(t *testing.T) {
	for _, port := range []int{1, 9999, 65535} {
		if err := ValidatePortNumber(port); err != nil {
			t.Errorf("Expected port %d to be valid: %v", port, err)
		}
	}
	for _, port := range []int{0, -1, 65536} {
		if err := ValidatePortNumber(port); err == nil {
			t.Errorf("Expected port %d to be invalid", port)
		}
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := fmt.Sprintf("comp%d", n)
			_ = registry.RegisterWithConfig(RegistrationConfig{
				Name:    name,
				Factory: createMockComponent,
				Type:    "processor",
			})
			_ = registry.RegisterInstance(name, newMockComponent(name, "processor"))
			registry.ListComponents()
			registry.ListFactories()
		}(i)
	}
	wg.Wait()

	if len(registry.ListComponents()) != 10 {
		t.Errorf("Expected 10 instances, got %d", len(registry.ListComponents()))
	}
	if len(registry.ListFactories()) != 10 {
		t.Errorf("Expected 10 factories, got %d", len(registry.ListFactories()))
	}
}

func TestRegistryPayloads(t *testing.T) {
	registry := NewRegistry()

	err := registry.RegisterPayload(&PayloadRegistration{
		Factory:     func() any { return &struct{ Line string }{} },
		Domain:      "text",
		Category:    "line",
		Version:     "v1",
		Description: "Raw text line",
	})
	if err != nil {
		t.Fatalf("RegisterPayload failed: %v", err)
	}

	if payload := registry.CreatePayload("text", "line", "v1"); payload == nil {
		t.Error("Expected payload instance")
	}
	if payload := registry.CreatePayload("text", "unknown", "v1"); payload != nil {
		t.Error("Expected nil for unknown payload type")
	}

	payloads := registry.ListPayloads()
	if _, ok := payloads["text.line.v1"]; !ok {
		t.Error("Expected text.line.v1 in payload list")
	}
}
