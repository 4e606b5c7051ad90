package world

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Format - формат файла описания мира
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

//go:embed schemas/world_definition.schema.json
var definitionSchemaJSON string

var (
	definitionSchema     *jsonschema.Schema
	definitionSchemaErr  error
	definitionSchemaOnce sync.Once
)

func compiledSchema() (*jsonschema.Schema, error) {
	definitionSchemaOnce.Do(func() {
		definitionSchema, definitionSchemaErr = jsonschema.CompileString("world_definition.schema.json", definitionSchemaJSON)
	})
	return definitionSchema, definitionSchemaErr
}

// FormatFromPath определяет формат по расширению файла
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unsupported file extension %q", ErrInvalidDefinition, filepath.Ext(path))
	}
}

// LoadDefinition читает описание мира из файла YAML или JSON
func LoadDefinition(path string) (*Definition, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read world definition: %w", err)
	}

	def, err := ParseDefinition(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// ParseDefinition проверяет документ по JSON-схеме и разбирает его в Definition
func ParseDefinition(data []byte, format Format) (*Definition, error) {
	doc, err := genericDocument(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile definition schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	var def Definition
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &def)
	case FormatJSON:
		err = json.Unmarshal(data, &def)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	return &def, nil
}

// genericDocument приводит документ к виду encoding/json (map[string]any, json.Number),
// который ожидает валидатор схемы. YAML сначала перекодируется в JSON.
func genericDocument(data []byte, format Format) (any, error) {
	raw := data
	switch format {
	case FormatYAML:
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		raw = converted
	case FormatJSON:
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// SaveDefinition записывает описание мира в формате, выбранном по расширению.
// В JSON регионы записываются массивом с явным id.
func SaveDefinition(path string, def *Definition) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(def, "", "  ")
	default:
		data, err = yaml.Marshal(def)
	}
	if err != nil {
		return fmt.Errorf("encode world definition: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
