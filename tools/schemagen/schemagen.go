// Package main generates the JSON schema for the spikefang configuration file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/Sumatoshi-tech/spikefang/pkg/config"
)

// Schema represents a JSON Schema.
type Schema struct {
	Schema      string             `json:"$schema,omitempty"`
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description,omitempty"`
	Type        string             `json:"type,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Ref         string             `json:"$ref,omitempty"`
	Definitions map[string]*Schema `json:"definitions,omitempty"`
}

// schemaFile is the generated schema file name.
const schemaFile = "spikefang-schema.json"

// enums maps config key paths to their accepted values. The empty string is
// accepted wherever validation treats empty as "use the default".
var enums = map[string][]string{
	"breakout.method":     {"", "multi", "amoc"},
	"detection.direction": {"", "both", "pos", "neg"},
	"detection.threshold": {"", "med_max", "p95", "p99"},
	"reports.format":      {"", "table", "json", "yaml"},
	"telemetry.log_level": {"", "debug", "info", "warn", "error"},
}

var outputDir string

func main() {
	flag.StringVar(&outputDir, "o", "pkg/config", "Output directory for the schema")
	flag.Parse()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	schema := generateSchema(&config.Config{})

	if err := writeSchema(schema); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing schema: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", filepath.Join(outputDir, schemaFile))
}

func generateSchema(v any) *Schema {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	defs := make(map[string]*Schema)
	props := structToProperties(t, "", defs)

	schema := &Schema{
		Schema:      "https://json-schema.org/draft-07/schema#",
		Title:       "Spikefang Configuration",
		Description: "JSON schema for the spikefang.yaml configuration file",
		Type:        "object",
		Properties:  props,
	}

	if len(defs) > 0 {
		schema.Definitions = defs
	}

	return schema
}

func structToProperties(t reflect.Type, prefix string, defs map[string]*Schema) map[string]*Schema {
	props := make(map[string]*Schema)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		tag := field.Tag.Get("mapstructure")
		if tag == "-" || tag == "" {
			continue
		}

		name := strings.Split(tag, ",")[0]

		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		props[name] = typeToSchema(field.Type, path, defs)
	}

	return props
}

func typeToSchema(t reflect.Type, path string, defs map[string]*Schema) *Schema {
	switch t.Kind() {
	case reflect.String:
		return &Schema{Type: "string", Enum: enums[path]}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}

	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}

	case reflect.Bool:
		return &Schema{Type: "boolean"}

	case reflect.Slice:
		return &Schema{Type: "array", Items: typeToSchema(t.Elem(), path, defs)}

	case reflect.Struct:
		defName := t.Name()
		if defName == "" {
			return &Schema{Type: "object", Properties: structToProperties(t, path, defs)}
		}

		if _, exists := defs[defName]; !exists {
			defs[defName] = &Schema{Type: "object", Properties: structToProperties(t, path, defs)}
		}

		return &Schema{Ref: "#/definitions/" + defName}

	case reflect.Ptr:
		return typeToSchema(t.Elem(), path, defs)

	default:
		return &Schema{Type: "object"}
	}
}

func writeSchema(schema *Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	data = append(data, '\n')

	return os.WriteFile(filepath.Join(outputDir, schemaFile), data, 0o644)
}
