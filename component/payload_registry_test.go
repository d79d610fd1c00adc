package component

import (
	"fmt"
	"sync"
	"testing"
)

type testLinePayload struct {
	Line string `json:"line"`
}

func newLineRegistration() *PayloadRegistration {
	return &PayloadRegistration{
		Factory:     func() any { return &testLinePayload{} },
		Domain:      "text",
		Category:    "line",
		Version:     "v1",
		Description: "Raw text line",
		Example:     map[string]any{"line": "hello streaming world"},
	}
}

func TestPayloadRegistrationMessageType(t *testing.T) {
	registration := newLineRegistration()
	if got := registration.MessageType(); got != "text.line.v1" {
		t.Errorf("Expected text.line.v1, got %s", got)
	}
}

func TestRegisterPayloadValidation(t *testing.T) {
	tests := []struct {
		name         string
		registration *PayloadRegistration
	}{
		{"nil registration", nil},
		{"nil factory", &PayloadRegistration{Domain: "text", Category: "line", Version: "v1"}},
		{"empty domain", &PayloadRegistration{Factory: func() any { return nil }, Category: "line", Version: "v1"}},
		{"empty category", &PayloadRegistration{Factory: func() any { return nil }, Domain: "text", Version: "v1"}},
		{"empty version", &PayloadRegistration{Factory: func() any { return nil }, Domain: "text", Category: "line"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewPayloadRegistry()
			if err := registry.RegisterPayload(tt.registration); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestRegisterPayloadDuplicate(t *testing.T) {
	registry := NewPayloadRegistry()

	if err := registry.RegisterPayload(newLineRegistration()); err != nil {
		t.Fatalf("First registration failed: %v", err)
	}
	if err := registry.RegisterPayload(newLineRegistration()); err == nil {
		t.Error("Expected duplicate registration error")
	}
}

func TestCreatePayloadFromRegistry(t *testing.T) {
	registry := NewPayloadRegistry()
	if err := registry.RegisterPayload(newLineRegistration()); err != nil {
		t.Fatalf("RegisterPayload failed: %v", err)
	}

	payload := registry.CreatePayload("text", "line", "v1")
	if payload == nil {
		t.Fatal("Expected payload instance")
	}
	if _, ok := payload.(*testLinePayload); !ok {
		t.Errorf("Expected *testLinePayload, got %T", payload)
	}

	// Unknown types return nil so callers fall back to a generic payload.
	if payload := registry.CreatePayload("text", "unknown", "v1"); payload != nil {
		t.Errorf("Expected nil for unknown type, got %T", payload)
	}
}

func TestGetRegistrationOmitsFactory(t *testing.T) {
	registry := NewPayloadRegistry()
	if err := registry.RegisterPayload(newLineRegistration()); err != nil {
		t.Fatalf("RegisterPayload failed: %v", err)
	}

	registration, ok := registry.GetRegistration("text.line.v1")
	if !ok {
		t.Fatal("Expected registration to be found")
	}
	if registration.Factory != nil {
		t.Error("Expected factory to be omitted from returned copy")
	}
	if registration.Domain != "text" || registration.Category != "line" {
		t.Errorf("Unexpected registration: %+v", registration)
	}

	if _, ok := registry.GetRegistration("text.unknown.v1"); ok {
		t.Error("Expected unknown type to report false")
	}
}

func TestListPayloads(t *testing.T) {
	registry := NewPayloadRegistry()

	registrations := []*PayloadRegistration{
		newLineRegistration(),
		{
			Factory:     func() any { return nil },
			Domain:      "text",
			Category:    "counts",
			Version:     "v1",
			Description: "Word counts for a batch window",
		},
		{
			Factory:     func() any { return nil },
			Domain:      "system",
			Category:    "health",
			Version:     "v1",
			Description: "Component health snapshot",
		},
	}
	for _, registration := range registrations {
		if err := registry.RegisterPayload(registration); err != nil {
			t.Fatalf("RegisterPayload failed: %v", err)
		}
	}

	payloads := registry.ListPayloads()
	if len(payloads) != 3 {
		t.Errorf("Expected 3 payloads, got %d", len(payloads))
	}
	for msgType, registration := range payloads {
		if registration.Factory != nil {
			t.Errorf("Payload %s: factory should be omitted", msgType)
		}
	}

	textPayloads := registry.ListByDomain("text")
	if len(textPayloads) != 2 {
		t.Errorf("Expected 2 text payloads, got %d", len(textPayloads))
	}
}

func TestPayloadRegistryConcurrentAccess(t *testing.T) {
	registry := NewPayloadRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = registry.RegisterPayload(&PayloadRegistration{
				Factory:  func() any { return &testLinePayload{} },
				Domain:   "text",
				Category: fmt.Sprintf("cat%d", n),
				Version:  "v1",
			})
			registry.CreatePayload("text", "cat0", "v1")
			registry.ListPayloads()
		}(i)
	}
	wg.Wait()

	if len(registry.ListPayloads()) != 10 {
		t.Errorf("Expected 10 payloads, got %d", len(registry.ListPayloads()))
	}
}
