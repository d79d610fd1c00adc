package component

import (
	"encoding/json"
	"testing"
)

func intPtr(n int) *int { return &n }

func TestValidateConfigRequiredFields(t *testing.T) {
	schema := ConfigSchema{
		Properties: map[string]PropertySchema{
			"host": {
				Type:        "string",
				Description: "Host to connect to",
			},
		},
		Required: []string{"host"},
	}

	errors := ValidateConfig(map[string]any{}, schema)

	if len(errors) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(errors))
	}
	if errors[0].Field != "host" {
		t.Errorf("Expected error on field 'host', got %q", errors[0].Field)
	}
	if errors[0].Code != "required" {
		t.Errorf("Expected error code 'required', got %q", errors[0].Code)
	}
}

func TestValidateConfigMinMax(t *testing.T) {
	schema := ConfigSchema{
		Properties: map[string]PropertySchema{
			"port": {
				Type:    "int",
				Minimum: intPtr(1),
				Maximum: intPtr(65535),
			},
		},
		Required: []string{"port"},
	}

	testCases := []struct {
		name         string
		config       map[string]any
		expectedCode string
	}{
		{"below minimum", map[string]any{"port": 0}, "min"},
		{"above maximum", map[string]any{"port": 99999}, "max"},
		{"valid value", map[string]any{"port": 9999}, ""},
		{"json number", map[string]any{"port": float64(9999)}, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			errors := ValidateConfig(tc.config, schema)

			if tc.expectedCode == "" {
				if len(errors) != 0 {
					t.Errorf("Expected no errors, got %d: %+v", len(errors), errors)
				}
			} else {
				if len(errors) == 0 {
					t.Errorf("Expected error with code %q, got none", tc.expectedCode)
				} else if errors[0].Code != tc.expectedCode {
					t.Errorf("Expected error code %q, got %q", tc.expectedCode, errors[0].Code)
				}
			}
		})
	}
}

func TestValidateConfigEnumValues(t *testing.T) {
	schema := ConfigSchema{
		Properties: map[string]PropertySchema{
			"level": {
				Type: "string",
				Enum: []string{"debug", "info", "warn", "error"},
			},
		},
		Required: []string{"level"},
	}

	errors := ValidateConfig(map[string]any{"level": "verbose"}, schema)
	if len(errors) != 1 || errors[0].Code != "enum" {
		t.Errorf("Expected single enum error, got %+v", errors)
	}

	errors = ValidateConfig(map[string]any{"level": "info"}, schema)
	if len(errors) != 0 {
		t.Errorf("Expected no errors for valid enum, got %+v", errors)
	}
}

func TestValidateConfigTypes(t *testing.T) {
	schema := ConfigSchema{
		Properties: map[string]PropertySchema{
			"host":       {Type: "string"},
			"port":       {Type: "int"},
			"emit_empty": {Type: "bool"},
			"rate":       {Type: "float"},
		},
	}

	testCases := []struct {
		name      string
		config    map[string]any
		wantField string
	}{
		{"all valid", map[string]any{"host": "localhost", "port": 9999, "emit_empty": true, "rate": 1.5}, ""},
		{"string as int", map[string]any{"port": "nine"}, "port"},
		{"int as string", map[string]any{"host": 9999}, "host"},
		{"string as bool", map[string]any{"emit_empty": "yes"}, "emit_empty"},
		{"int as float ok", map[string]any{"rate": 2}, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			errors := ValidateConfig(tc.config, schema)

			if tc.wantField == "" {
				if len(errors) != 0 {
					t.Errorf("Expected no errors, got %+v", errors)
				}
				return
			}

			if len(errors) != 1 {
				t.Fatalf("Expected 1 error, got %d: %+v", len(errors), errors)
			}
			if errors[0].Field != tc.wantField || errors[0].Code != "type" {
				t.Errorf("Expected type error on %q, got %+v", tc.wantField, errors[0])
			}
		})
	}
}

func TestValidateConfigUnknownFieldsAllowed(t *testing.T) {
	schema := ConfigSchema{
		Properties: map[string]PropertySchema{
			"host": {Type: "string"},
		},
	}

	// Unknown fields pass so configs survive schema evolution.
	errors := ValidateConfig(map[string]any{"host": "localhost", "future_field": 42}, schema)
	if len(errors) != 0 {
		t.Errorf("Expected unknown fields to be allowed, got %+v", errors)
	}
}

func TestValidationErrorSerialization(t *testing.T) {
	ve := ValidationError{Field: "port", Message: `Field "port" is required`, Code: "required"}

	data, err := json.Marshal(ve)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var restored ValidationError
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if restored != ve {
		t.Errorf("Expected %+v, got %+v", ve, restored)
	}
}

func TestGetPropertyValue(t *testing.T) {
	config := map[string]any{"port": 9999, "host": "localhost"}

	if value, exists := GetPropertyValue(config, "port"); !exists || value != 9999 {
		t.Errorf("Expected (9999, true), got (%v, %t)", value, exists)
	}
	if _, exists := GetPropertyValue(config, "missing"); exists {
		t.Error("Expected missing key to report false")
	}
	if _, exists := GetPropertyValue(nil, "port"); exists {
		t.Error("Expected nil config to report false")
	}
}

func TestGetProperties(t *testing.T) {
	schema := ConfigSchema{
		Properties: map[string]PropertySchema{
			"host":        {Type: "string", Category: "basic"},
			"port":        {Type: "int", Category: "basic"},
			"buffer_size": {Type: "int", Category: "advanced"},
			"timeout":     {Type: "int"}, // defaults to advanced
		},
	}

	basic := GetProperties(schema, "basic")
	if len(basic) != 2 {
		t.Errorf("Expected 2 basic properties, got %d", len(basic))
	}

	advanced := GetProperties(schema, "advanced")
	if len(advanced) != 2 {
		t.Errorf("Expected 2 advanced properties, got %d", len(advanced))
	}

	all := GetProperties(schema, "")
	if len(all) != 4 {
		t.Errorf("Expected 4 total properties, got %d", len(all))
	}
}

func TestIsComplexType(t *testing.T) {
	for _, complexType := range []string{"object", "array"} {
		if !IsComplexType(complexType) {
			t.Errorf("Expected %s to be complex", complexType)
		}
	}
	for _, simpleType := range []string{"string", "int", "bool", "float", "enum"} {
		if IsComplexType(simpleType) {
			t.Errorf("Expected %s to be simple", simpleType)
		}
	}
}

func TestSortedPropertyNames(t *testing.T) {
	schema := ConfigSchema{
		Properties: map[string]PropertySchema{
			"port":        {Category: "basic"},
			"host":        {Category: "basic"},
			"buffer_size": {Category: "advanced"},
			"timeout":     {}, // defaults to advanced
		},
	}

	names := SortedPropertyNames(schema)
	expected := []string{"host", "port", "buffer_size", "timeout"}

	if len(names) != len(expected) {
		t.Fatalf("Expected %d names, got %d", len(expected), len(names))
	}
	for i, name := range expected {
		if names[i] != name {
			t.Errorf("Position %d: expected %s, got %s", i, name, names[i])
		}
	}
}
