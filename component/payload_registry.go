package component

import (
	"fmt"
	"sync"

	"github.com/c360/wordstream/errors"
)

// PayloadFactory creates a payload instance for a message type. It
// returns any to avoid an import cycle with the message package; the
// value must implement message.Payload.
type PayloadFactory func() any

// PayloadRegistration holds the factory and metadata for a payload type.
type PayloadRegistration struct {
	Factory     PayloadFactory `json:"-"`
	Domain      string         `json:"domain"`   // e.g., "text"
	Category    string         `json:"category"` // e.g., "line", "counts"
	Version     string         `json:"version"`  // e.g., "v1"
	Description string         `json:"description"`
	Example     map[string]any `json:"example"`
}

// MessageType returns the "domain.category.version" type string,
// e.g., "text.line.v1".
func (pr *PayloadRegistration) MessageType() string {
	return fmt.Sprintf("%s.%s.%s", pr.Domain, pr.Category, pr.Version)
}

// PayloadRegistry manages payload factories for message deserialization,
// letting BaseMessage.UnmarshalJSON recreate typed payloads from JSON.
type PayloadRegistry struct {
	registrations map[string]*PayloadRegistration
	mu            sync.RWMutex
}

// NewPayloadRegistry creates an empty payload registry.
func NewPayloadRegistry() *PayloadRegistry {
	return &PayloadRegistry{
		registrations: make(map[string]*PayloadRegistration),
	}
}

// RegisterPayload registers a payload factory. The message type is
// derived from the registration's Domain, Category, and Version.
func (pr *PayloadRegistry) RegisterPayload(registration *PayloadRegistration) error {
	if registration == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "PayloadRegistry", "RegisterPayload", "registration validation")
	}
	if registration.Factory == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "PayloadRegistry", "RegisterPayload", "factory function validation")
	}
	if registration.Domain == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "PayloadRegistry", "RegisterPayload", "domain validation")
	}
	if registration.Category == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "PayloadRegistry", "RegisterPayload", "category validation")
	}
	if registration.Version == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "PayloadRegistry", "RegisterPayload", "version validation")
	}

	msgType := registration.MessageType()

	pr.mu.Lock()
	defer pr.mu.Unlock()

	if _, exists := pr.registrations[msgType]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("payload type '%s' is already registered", msgType),
			"PayloadRegistry", "RegisterPayload", "duplicate payload check",
		)
	}

	pr.registrations[msgType] = registration
	return nil
}

// CreatePayload creates a payload instance using the registered factory.
// Returns nil for unknown types so deserialization can fall back to a
// generic payload.
func (pr *PayloadRegistry) CreatePayload(domain, category, version string) any {
	typeStr := fmt.Sprintf("%s.%s.%s", domain, category, version)

	pr.mu.RLock()
	registration, exists := pr.registrations[typeStr]
	pr.mu.RUnlock()

	if !exists {
		return nil
	}
	return registration.Factory()
}

// GetRegistration returns the registration for a message type. The
// factory function is not included in the returned copy.
func (pr *PayloadRegistry) GetRegistration(msgType string) (*PayloadRegistration, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	registration, exists := pr.registrations[msgType]
	if !exists {
		return nil, false
	}

	return &PayloadRegistration{
		Domain:      registration.Domain,
		Category:    registration.Category,
		Version:     registration.Version,
		Description: registration.Description,
		Example:     registration.Example,
	}, true
}

// ListPayloads returns all registered payload types, without factories.
func (pr *PayloadRegistry) ListPayloads() map[string]*PayloadRegistration {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	result := make(map[string]*PayloadRegistration, len(pr.registrations))
	for msgType, registration := range pr.registrations {
		result[msgType] = &PayloadRegistration{
			Domain:      registration.Domain,
			Category:    registration.Category,
			Version:     registration.Version,
			Description: registration.Description,
			Example:     registration.Example,
		}
	}
	return result
}

// ListByDomain returns all registrations for a domain, without factories.
func (pr *PayloadRegistry) ListByDomain(domain string) []*PayloadRegistration {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	var result []*PayloadRegistration
	for _, registration := range pr.registrations {
		if registration.Domain == domain {
			result = append(result, &PayloadRegistration{
				Domain:      registration.Domain,
				Category:    registration.Category,
				Version:     registration.Version,
				Description: registration.Description,
				Example:     registration.Example,
			})
		}
	}
	return result
}

// Payload registration stays global because payloads are data types, not
// lifecycle components. Component packages register them in init().
var globalPayloadRegistry = NewPayloadRegistry()

// RegisterPayload registers a payload factory globally so typed payloads
// can be recreated during message deserialization.
func RegisterPayload(registration *PayloadRegistration) error {
	return globalPayloadRegistry.RegisterPayload(registration)
}

// CreatePayload creates a payload via the global registry. Returns nil
// if no factory is registered for the given type.
func CreatePayload(domain, category, version string) any {
	return globalPayloadRegistry.CreatePayload(domain, category, version)
}
