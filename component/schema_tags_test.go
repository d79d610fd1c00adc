package component

import (
	"reflect"
	"testing"
)

func TestParseSchemaTag(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		want    SchemaDirectives
		wantErr bool
	}{
		{
			name: "basic string field",
			tag:  "type:string,description:Host to connect to,category:basic",
			want: SchemaDirectives{
				Type:        "string",
				Description: "Host to connect to",
				Category:    "basic",
			},
		},
		{
			name: "int with constraints and default",
			tag:  "type:int,description:Port,min:1,max:65535,default:9999",
			want: SchemaDirectives{
				Type:        "int",
				Description: "Port",
				Min:         intPtr(1),
				Max:         intPtr(65535),
				Default:     "9999",
			},
		},
		{
			name: "enum with pipe separated values",
			tag:  "type:enum,description:Log level,enum:debug|info|warn,default:info",
			want: SchemaDirectives{
				Type:        "enum",
				Description: "Log level",
				Enum:        []string{"debug", "info", "warn"},
				Default:     "info",
			},
		},
		{
			name: "boolean flags",
			tag:  "required,type:string,description:Listen address",
			want: SchemaDirectives{
				Type:        "string",
				Description: "Listen address",
				Required:    true,
			},
		},
		{
			name: "readonly flag",
			tag:  "readonly,type:string",
			want: SchemaDirectives{
				Type:     "string",
				ReadOnly: true,
			},
		},
		{
			name:    "empty tag",
			tag:     "",
			wantErr: true,
		},
		{
			name:    "missing type",
			tag:     "description:No type here",
			wantErr: true,
		},
		{
			name:    "invalid type",
			tag:     "type:widget",
			wantErr: true,
		},
		{
			name:    "invalid category",
			tag:     "type:string,category:expert",
			wantErr: true,
		},
		{
			name:    "unknown flag",
			tag:     "type:string,shiny",
			wantErr: true,
		},
		{
			name:    "bad min value",
			tag:     "type:int,min:lots",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchemaTag(tt.tag)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for tag %q", tt.tag)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSchemaTag(%q) failed: %v", tt.tag, err)
			}

			if got.Type != tt.want.Type {
				t.Errorf("Type: got %q, want %q", got.Type, tt.want.Type)
			}
			if got.Description != tt.want.Description {
				t.Errorf("Description: got %q, want %q", got.Description, tt.want.Description)
			}
			if got.Category != tt.want.Category {
				t.Errorf("Category: got %q, want %q", got.Category, tt.want.Category)
			}
			if got.Required != tt.want.Required {
				t.Errorf("Required: got %t, want %t", got.Required, tt.want.Required)
			}
			if got.ReadOnly != tt.want.ReadOnly {
				t.Errorf("ReadOnly: got %t, want %t", got.ReadOnly, tt.want.ReadOnly)
			}
			if !reflect.DeepEqual(got.Enum, tt.want.Enum) {
				t.Errorf("Enum: got %v, want %v", got.Enum, tt.want.Enum)
			}
			if (got.Min == nil) != (tt.want.Min == nil) {
				t.Errorf("Min presence: got %v, want %v", got.Min, tt.want.Min)
			} else if got.Min != nil && *got.Min != *tt.want.Min {
				t.Errorf("Min: got %d, want %d", *got.Min, *tt.want.Min)
			}
			if tt.want.Default != nil && got.Default != tt.want.Default {
				t.Errorf("Default: got %v, want %v", got.Default, tt.want.Default)
			}
		})
	}
}

func TestGenerateConfigSchema(t *testing.T) {
	type socketConfig struct {
		Host       string `json:"host" schema:"required,type:string,description:Host to connect to,category:basic"`
		Port       int    `json:"port" schema:"required,type:int,description:TCP port,min:1,max:65535,default:9999,category:basic"`
		BufferSize int    `json:"buffer_size" schema:"type:int,description:Line buffer capacity,min:1,default:1000,category:advanced"`
		Delimiter  string `json:"delimiter,omitempty" schema:"type:string,description:Line delimiter"`
		NoTag      string `json:"no_tag"`
		Skipped    string `json:"-" schema:"type:string"`
	}

	schema := GenerateConfigSchema(reflect.TypeOf(socketConfig{}))

	if len(schema.Properties) != 4 {
		t.Errorf("Expected 4 properties, got %d: %v", len(schema.Properties), schema.Properties)
	}

	host, ok := schema.Properties["host"]
	if !ok {
		t.Fatal("host property missing")
	}
	if host.Type != "string" || host.Category != "basic" {
		t.Errorf("Unexpected host schema: %+v", host)
	}

	port, ok := schema.Properties["port"]
	if !ok {
		t.Fatal("port property missing")
	}
	if port.Default != 9999 {
		t.Errorf("Expected port default 9999 as int, got %v (%T)", port.Default, port.Default)
	}
	if port.Minimum == nil || *port.Minimum != 1 {
		t.Errorf("Expected port minimum 1, got %v", port.Minimum)
	}
	if port.Maximum == nil || *port.Maximum != 65535 {
		t.Errorf("Expected port maximum 65535, got %v", port.Maximum)
	}

	// omitempty in the json tag must not leak into the property name
	if _, ok := schema.Properties["delimiter"]; !ok {
		t.Error("delimiter property missing")
	}

	if len(schema.Required) != 2 {
		t.Errorf("Expected 2 required fields, got %v", schema.Required)
	}
}

func TestGenerateConfigSchemaPointerType(t *testing.T) {
	type config struct {
		Host string `json:"host" schema:"type:string,description:Host"`
	}

	schema := GenerateConfigSchema(reflect.TypeOf(&config{}))
	if len(schema.Properties) != 1 {
		t.Errorf("Expected pointer type to be dereferenced, got %d properties", len(schema.Properties))
	}
}

func TestGenerateConfigSchemaNonStruct(t *testing.T) {
	schema := GenerateConfigSchema(reflect.TypeOf("not a struct"))
	if len(schema.Properties) != 0 {
		t.Errorf("Expected empty schema for non-struct, got %+v", schema)
	}
}

func TestGenerateConfigSchemaInvalidTagSkipped(t *testing.T) {
	type config struct {
		Good string `json:"good" schema:"type:string,description:Fine"`
		Bad  string `json:"bad" schema:"type:widget"`
	}

	schema := GenerateConfigSchema(reflect.TypeOf(config{}))
	if _, ok := schema.Properties["good"]; !ok {
		t.Error("good property missing")
	}
	if _, ok := schema.Properties["bad"]; ok {
		t.Error("bad property should be skipped")
	}
}

func TestGenerateConfigSchemaDescriptionFallback(t *testing.T) {
	type config struct {
		Host string `json:"host" schema:"type:string"`
	}

	schema := GenerateConfigSchema(reflect.TypeOf(config{}))
	if schema.Properties["host"].Description != "host" {
		t.Errorf("Expected field name fallback, got %q", schema.Properties["host"].Description)
	}
}

func TestConvertDefault(t *testing.T) {
	tests := []struct {
		name      string
		value     any
		fieldType string
		want      any
	}{
		{"string", "localhost", "string", "localhost"},
		{"enum", "info", "enum", "info"},
		{"int", "9999", "int", 9999},
		{"bad int", "many", "int", nil},
		{"bool true", "true", "bool", true},
		{"bad bool", "yep", "bool", nil},
		{"float", "1.5", "float", 1.5},
		{"nil passthrough", nil, "string", nil},
		{"object has no default", "x", "object", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertDefault(tt.value, tt.fieldType)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("convertDefault(%v, %s) = %v, want %v", tt.value, tt.fieldType, got, tt.want)
			}
		})
	}
}

func TestGeneratePortFieldSchema(t *testing.T) {
	fields := GeneratePortFieldSchema()
	if len(fields) == 0 {
		t.Fatal("Expected PortDefinition fields")
	}

	for name, info := range fields {
		if info.Type == "" {
			t.Errorf("Field %s has empty type", name)
		}
	}
}
