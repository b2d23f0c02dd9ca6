package config

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/grovetools/proctrack/schema"
	"github.com/invopop/jsonschema"
)

var (
	extensionsMu sync.RWMutex
	// extensionTypes maps extension keys to a prototype of their typed
	// configuration. Registered sections become part of the generated schema.
	extensionTypes = map[string]interface{}{}
)

// RegisterExtension makes key a known extension section whose shape is
// reflected from prototype (a pointer to the extension's config struct).
func RegisterExtension(key string, prototype interface{}) {
	extensionsMu.Lock()
	defer extensionsMu.Unlock()
	extensionTypes[key] = prototype
}

func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		// Sections are closed; unknown top-level keys are handled below.
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		DoNotReference:            true,
		Anonymous:                 true,
		FieldNameTag:              "yaml",
	}
}

// GenerateSchema generates the JSON Schema for proctrack.yml. Typed sections
// reject unknown keys; the top level stays open so unregistered extensions
// still load.
func GenerateSchema() ([]byte, error) {
	r := newReflector()
	s := r.Reflect(&Config{})
	s.Title = "proctrack configuration"
	s.Description = "Schema for proctrack.yml."
	s.Version = "http://json-schema.org/draft-07/schema#"
	s.AdditionalProperties = jsonschema.TrueSchema

	extensionsMu.RLock()
	keys := make([]string, 0, len(extensionTypes))
	for key := range extensionTypes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		ext := newReflector().Reflect(extensionTypes[key])
		ext.Version = ""
		s.Properties.Set(key, ext)
	}
	extensionsMu.RUnlock()

	return json.MarshalIndent(s, "", "  ")
}

// NewSchemaValidator compiles the generated schema.
func NewSchemaValidator() (*schema.Validator, error) {
	data, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	return schema.NewValidator(data)
}
