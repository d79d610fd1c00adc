package component

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// ConfigValidator enforces structural limits on untrusted JSON config
// before it is unmarshaled into component config structs.
type ConfigValidator struct {
	maxDepth     int
	maxArraySize int
}

// NewConfigValidator creates a validator with default limits.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		maxDepth:     10,
		maxArraySize: 1000,
	}
}

// ValidateConfig checks raw JSON against size, depth, and content limits.
func (v *ConfigValidator) ValidateConfig(raw json.RawMessage) error {
	if err := ValidateJSONSize(raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return v.validateValue(value, 0)
}

func (v *ConfigValidator) validateValue(value any, depth int) error {
	if depth > v.maxDepth {
		return fmt.Errorf("JSON nesting depth exceeds maximum of %d", v.maxDepth)
	}

	switch val := value.(type) {
	case map[string]any:
		for key, item := range val {
			if err := v.validateStringContent(key); err != nil {
				return fmt.Errorf("invalid key %q: %w", key, err)
			}
			if err := v.validateValue(item, depth+1); err != nil {
				return err
			}
		}
	case []any:
		if len(val) > v.maxArraySize {
			return fmt.Errorf("array size %d exceeds maximum of %d", len(val), v.maxArraySize)
		}
		for _, item := range val {
			if err := v.validateValue(item, depth+1); err != nil {
				return err
			}
		}
	case string:
		if err := v.validateStringContent(val); err != nil {
			return err
		}
	}
	return nil
}

// validateStringContent rejects strings with null bytes or control
// characters that could corrupt logs or downstream parsers.
func (v *ConfigValidator) validateStringContent(s string) error {
	if len(s) > MaxStringLength {
		return fmt.Errorf("string length %d exceeds maximum of %d", len(s), MaxStringLength)
	}
	if strings.ContainsRune(s, 0) {
		return fmt.Errorf("string contains null byte")
	}
	for _, r := range s {
		if unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r' {
			return fmt.Errorf("string contains control character %U", r)
		}
	}
	return nil
}

// ValidateFactoryConfig is the validation applied to raw config before
// it reaches a component factory.
func ValidateFactoryConfig(raw json.RawMessage) error {
	return NewConfigValidator().ValidateConfig(raw)
}

// Validatable lets config structs validate themselves after unmarshal.
type Validatable interface {
	Validate() error
}

// SafeUnmarshal validates raw JSON, unmarshals it into target, and runs
// the target's Validate method if it implements Validatable. target must
// be a non-nil pointer.
func SafeUnmarshal(raw json.RawMessage, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("SafeUnmarshal: target must be a non-nil pointer")
	}

	if err := ValidateFactoryConfig(raw); err != nil {
		return fmt.Errorf("SafeUnmarshal: config validation failed: %w", err)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("SafeUnmarshal: unmarshal failed: %w", err)
		}
	}

	if validatable, ok := target.(Validatable); ok {
		if err := validatable.Validate(); err != nil {
			return fmt.Errorf("SafeUnmarshal: validation failed: %w", err)
		}
	}
	return nil
}

// ValidateNetworkConfig checks host and port values for network ports.
func ValidateNetworkConfig(host string, port int) error {
	if host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if len(host) > MaxStringLength {
		return fmt.Errorf("host exceeds maximum length of %d", MaxStringLength)
	}
	return ValidatePortNumber(port)
}
