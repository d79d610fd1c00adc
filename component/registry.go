package component

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
)

// Info provides metadata about a registered component factory.
type Info struct {
	Type        string `json:"type"`        // "input", "processor", "output"
	Protocol    string `json:"protocol"`    // Technical protocol (tcp, nats, websocket, internal)
	Domain      string `json:"domain"`      // Business domain (text, metrics, system)
	Description string `json:"description"` // Human-readable description
	Version     string `json:"version"`     // Component version
}

// Factory creates a component instance from configuration. The factory
// receives raw JSON configuration and dependencies, parses its own
// config, and returns an initialized component. All I/O belongs in the
// component's Start method, not in the factory.
type Factory func(rawConfig json.RawMessage, deps Dependencies) (Discoverable, error)

// Registration holds factory and metadata for a component type
type Registration struct {
	Name        string       `json:"name"`        // Factory name (e.g., "socket")
	Type        string       `json:"type"`        // Component type (input/processor/output)
	Protocol    string       `json:"protocol"`    // Technical protocol (tcp, nats, websocket)
	Domain      string       `json:"domain"`      // Business domain (text, metrics)
	Description string       `json:"description"` // Human-readable description
	Version     string       `json:"version"`     // Component version
	Schema      ConfigSchema `json:"schema"`      // Config schema as static metadata
	Factory     Factory      `json:"-"`           // Factory function (not serializable)
}

// RegistrationConfig provides a flat API for component registration.
// It maps 1:1 to Registration fields.
type RegistrationConfig struct {
	Name        string
	Factory     Factory
	Schema      ConfigSchema
	Type        string
	Protocol    string
	Domain      string
	Description string
	Version     string
}

// Registry manages component factories and live instances. It also
// tracks exclusive resource claims (listen addresses, stream names) so
// two components cannot bind the same one.
type Registry struct {
	mu              sync.RWMutex
	factories       map[string]*Registration
	instances       map[string]Discoverable
	resourceTracker map[string]string // resource ID -> instance name
	payloadRegistry *PayloadRegistry
}

// NewRegistry creates an empty component registry.
func NewRegistry() *Registry {
	return &Registry{
		factories:       make(map[string]*Registration),
		instances:       make(map[string]Discoverable),
		resourceTracker: make(map[string]string),
		payloadRegistry: NewPayloadRegistry(),
	}
}

// RegisterFactory adds a component factory under the given name.
func (r *Registry) RegisterFactory(name string, registration *Registration) error {
	if err := ValidateComponentName(name); err != nil {
		return fmt.Errorf("registry.RegisterFactory: invalid component name: %w", err)
	}
	if registration == nil || registration.Factory == nil {
		return fmt.Errorf("registry.RegisterFactory: factory for %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("registry.RegisterFactory: factory %q already registered", name)
	}
	r.factories[name] = registration
	return nil
}

// RegisterWithConfig registers a factory from the flat config form.
func (r *Registry) RegisterWithConfig(config RegistrationConfig) error {
	return r.RegisterFactory(config.Name, &Registration{
		Name:        config.Name,
		Type:        config.Type,
		Protocol:    config.Protocol,
		Domain:      config.Domain,
		Description: config.Description,
		Version:     config.Version,
		Schema:      config.Schema,
		Factory:     config.Factory,
	})
}

// CreateComponent instantiates a component by factory name. The raw
// config is validated before it reaches the factory, and the created
// component's type must match the registered type.
func (r *Registry) CreateComponent(name string, rawConfig json.RawMessage, deps Dependencies) (Discoverable, error) {
	if err := ValidateComponentName(name); err != nil {
		return nil, fmt.Errorf("registry.CreateComponent: invalid component name: %w", err)
	}
	if err := ValidateFactoryConfig(rawConfig); err != nil {
		return nil, fmt.Errorf("registry.CreateComponent: invalid config for %q: %w", name, err)
	}

	r.mu.RLock()
	registration, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("registry.CreateComponent: no factory registered for %q", name)
	}

	comp, err := registration.Factory(rawConfig, deps)
	if err != nil {
		return nil, fmt.Errorf("registry.CreateComponent: factory %q failed: %w", name, err)
	}

	if registration.Type != "" && comp.Meta().Type != registration.Type {
		return nil, fmt.Errorf("registry.CreateComponent: factory %q produced type %q, registered as %q",
			name, comp.Meta().Type, registration.Type)
	}
	return comp, nil
}

// RegisterInstance tracks a live component instance. Exclusive resource
// claims are checked so a second component cannot bind an address or
// stream an existing component already owns.
func (r *Registry) RegisterInstance(name string, comp Discoverable) error {
	if err := ValidateComponentName(name); err != nil {
		return fmt.Errorf("registry.RegisterInstance: invalid component name: %w", err)
	}
	if comp == nil {
		return fmt.Errorf("registry.RegisterInstance: component %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[name]; exists {
		return fmt.Errorf("registry.RegisterInstance: instance %q already registered", name)
	}

	if err := r.checkResourceConflicts(name, comp); err != nil {
		return fmt.Errorf("registry.RegisterInstance: %w", err)
	}

	r.instances[name] = comp
	r.trackComponentResources(name, comp)
	return nil
}

// UnregisterInstance removes a live instance and releases its resources.
// Unknown names are a no-op.
func (r *Registry) UnregisterInstance(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	comp, exists := r.instances[name]
	if !exists {
		return
	}

	r.untrackComponentResources(comp)
	delete(r.instances, name)
}

// Component returns a live instance by name, or nil if not registered.
func (r *Registry) Component(name string) Discoverable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.instances[name]
}

// ListComponents returns a snapshot of all live instances.
func (r *Registry) ListComponents() map[string]Discoverable {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]Discoverable, len(r.instances))
	for name, comp := range r.instances {
		result[name] = comp
	}
	return result
}

// ListFactories returns a snapshot of all registered factories.
func (r *Registry) ListFactories() map[string]*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Registration, len(r.factories))
	for name, registration := range r.factories {
		result[name] = registration
	}
	return result
}

// ListAvailable returns metadata for every registered factory.
func (r *Registry) ListAvailable() map[string]Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]Info, len(r.factories))
	for name, registration := range r.factories {
		result[name] = Info{
			Type:        registration.Type,
			Protocol:    registration.Protocol,
			Domain:      registration.Domain,
			Description: registration.Description,
			Version:     registration.Version,
		}
	}
	return result
}

// GetFactory returns a factory function by name.
func (r *Registry) GetFactory(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registration, exists := r.factories[name]
	if !exists {
		return nil, false
	}
	return registration.Factory, true
}

// GetComponentSchema returns the config schema for a registered factory.
func (r *Registry) GetComponentSchema(name string) (ConfigSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registration, exists := r.factories[name]
	if !exists {
		return ConfigSchema{}, fmt.Errorf("registry.GetComponentSchema: no factory registered for %q", name)
	}
	return registration.Schema, nil
}

// ListComponentTypes returns the distinct types among registered factories.
func (r *Registry) ListComponentTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var result []string
	for _, registration := range r.factories {
		if registration.Type != "" && !seen[registration.Type] {
			seen[registration.Type] = true
			result = append(result, registration.Type)
		}
	}
	return result
}

// RegisterPayload registers a payload factory in this registry's
// payload registry.
func (r *Registry) RegisterPayload(registration *PayloadRegistration) error {
	return r.payloadRegistry.RegisterPayload(registration)
}

// CreatePayload creates a payload instance via this registry.
func (r *Registry) CreatePayload(domain, category, version string) any {
	return r.payloadRegistry.CreatePayload(domain, category, version)
}

// ListPayloads returns all payload types registered in this registry.
func (r *Registry) ListPayloads() map[string]*PayloadRegistration {
	return r.payloadRegistry.ListPayloads()
}

// checkResourceConflicts verifies a component's exclusive ports are free.
// Caller holds r.mu.
func (r *Registry) checkResourceConflicts(name string, comp Discoverable) error {
	for _, port := range append(comp.InputPorts(), comp.OutputPorts()...) {
		if port.Config == nil || !port.Config.IsExclusive() {
			continue
		}
		id := port.Config.ResourceID()
		if owner, taken := r.resourceTracker[id]; taken && owner != name {
			return fmt.Errorf("resource %q already claimed by component %q", id, owner)
		}
	}
	return nil
}

// trackComponentResources records the exclusive resources an instance
// claims. Caller holds r.mu.
func (r *Registry) trackComponentResources(name string, comp Discoverable) {
	for _, port := range append(comp.InputPorts(), comp.OutputPorts()...) {
		if port.Config != nil && port.Config.IsExclusive() {
			r.resourceTracker[port.Config.ResourceID()] = name
		}
	}
}

// untrackComponentResources releases an instance's exclusive resource
// claims. Caller holds r.mu.
func (r *Registry) untrackComponentResources(comp Discoverable) {
	for _, port := range append(comp.InputPorts(), comp.OutputPorts()...) {
		if port.Config != nil && port.Config.IsExclusive() {
			delete(r.resourceTracker, port.Config.ResourceID())
		}
	}
}

// Validation limits for config values passed through the registry.
const (
	MaxStringLength = 1024
	MaxJSONSize     = 1024 * 1024 // 1MB
	MinPort         = 1
	MaxPort         = 65535
)

var componentNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// ValidateComponentName checks a component name is safe for use as a
// registry key, metric label, and log field.
func ValidateComponentName(name string) error {
	if name == "" {
		return fmt.Errorf("component name cannot be empty")
	}
	if len(name) > MaxStringLength {
		return fmt.Errorf("component name exceeds maximum length of %d", MaxStringLength)
	}
	if !componentNamePattern.MatchString(name) {
		return fmt.Errorf("component name %q must start with a letter and contain only letters, digits, underscores, and hyphens", name)
	}
	return nil
}

// ValidateJSONSize checks raw config does not exceed size limits.
func ValidateJSONSize(data json.RawMessage) error {
	if len(data) > MaxJSONSize {
		return fmt.Errorf("JSON config size %d exceeds maximum of %d bytes", len(data), MaxJSONSize)
	}
	return nil
}

// ValidatePortNumber checks a TCP/UDP port is in the valid range.
func ValidatePortNumber(port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("port %d outside valid range %d-%d", port, MinPort, MaxPort)
	}
	return nil
}
