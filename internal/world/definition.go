package world

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Point - точка в описании мира, записывается как [x, y, z]
type Point [3]float64

// Definition - декларативное описание мира, из которого строится WorldGraph
type Definition struct {
	Start       string          `yaml:"start,omitempty" json:"start,omitempty"` // Регион появления игрока
	Regions     RegionDefs      `yaml:"regions" json:"regions"`
	Connections []ConnectionDef `yaml:"connections,omitempty" json:"connections,omitempty"`
}

// RegionDef - описание одного региона.
// Форма задаётся либо полем radius (шар), либо полем bounds.
type RegionDef struct {
	ID         string         `yaml:"id,omitempty" json:"id,omitempty"`
	Name       string         `yaml:"name,omitempty" json:"name,omitempty"`
	Center     Point          `yaml:"center" json:"center"`
	Radius     *float64       `yaml:"radius,omitempty" json:"radius,omitempty"`
	Bounds     *BoundsDef     `yaml:"bounds,omitempty" json:"bounds,omitempty"`
	Biome      string         `yaml:"biome,omitempty" json:"biome,omitempty"`
	SpawnTable *SpawnTableDef `yaml:"spawnTable,omitempty" json:"spawnTable,omitempty"`
}

// BoundsDef - явное описание формы
type BoundsDef struct {
	Type   BoundsKind `yaml:"type" json:"type"`
	Radius float64    `yaml:"radius,omitempty" json:"radius,omitempty"`
	Size   Point      `yaml:"size,omitempty" json:"size,omitempty"`
}

// SpawnTableDef - таблица спавна в описании мира
type SpawnTableDef struct {
	Creatures []SpawnEntryDef `yaml:"creatures,omitempty" json:"creatures,omitempty"`
	Resources []SpawnEntryDef `yaml:"resources,omitempty" json:"resources,omitempty"`
}

// SpawnEntryDef - запись таблицы спавна, packSize записывается как [min, max]
type SpawnEntryDef struct {
	ID       string  `yaml:"id" json:"id"`
	Weight   float64 `yaml:"weight" json:"weight"`
	PackSize *[2]int `yaml:"packSize,omitempty" json:"packSize,omitempty"`
}

// ConnectionDef - описание соединения
type ConnectionDef struct {
	From          string         `yaml:"from" json:"from"`
	To            string         `yaml:"to" json:"to"`
	Type          ConnectionType `yaml:"type" json:"type"`
	FromPosition  Point          `yaml:"fromPosition" json:"fromPosition"`
	ToPosition    Point          `yaml:"toPosition" json:"toPosition"`
	Bidirectional bool           `yaml:"bidirectional,omitempty" json:"bidirectional,omitempty"`
}

// RegionDefs - упорядоченный список регионов.
// В файлах регионы обычно записываются отображением id → описание;
// порядок ключей сохраняется, он определяет приоритет при пересечении регионов.
// Также поддерживается список с явным полем id.
type RegionDefs []RegionDef

// UnmarshalYAML разбирает отображение или последовательность, сохраняя порядок
func (rd *RegionDefs) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		defs := make(RegionDefs, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			key, body := value.Content[i], value.Content[i+1]
			var def RegionDef
			if err := body.Decode(&def); err != nil {
				return fmt.Errorf("region %q: %w", key.Value, err)
			}
			def.ID = key.Value
			defs = append(defs, def)
		}
		*rd = defs
		return nil
	case yaml.SequenceNode:
		var defs []RegionDef
		if err := value.Decode(&defs); err != nil {
			return err
		}
		*rd = defs
		return nil
	default:
		return fmt.Errorf("regions: expected mapping or sequence, got %s", value.Tag)
	}
}

// MarshalYAML записывает регионы отображением id → описание
func (rd RegionDefs) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, def := range rd {
		id := def.ID
		def.ID = ""

		var body yaml.Node
		if err := body.Encode(def); err != nil {
			return nil, fmt.Errorf("region %q: %w", id, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: id},
			&body,
		)
	}
	return node, nil
}

// UnmarshalJSON разбирает объект или массив, сохраняя порядок ключей объекта
func (rd *RegionDefs) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*rd = nil
		return nil
	}

	if trimmed[0] == '[' {
		var defs []RegionDef
		if err := json.Unmarshal(trimmed, &defs); err != nil {
			return err
		}
		*rd = defs
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil { // '{'
		return err
	}

	var defs RegionDefs
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("regions: unexpected key %v", tok)
		}
		var def RegionDef
		if err := dec.Decode(&def); err != nil {
			return fmt.Errorf("region %q: %w", id, err)
		}
		def.ID = id
		defs = append(defs, def)
	}
	if _, err := dec.Token(); err != nil { // '}'
		return err
	}

	*rd = defs
	return nil
}

// buildBounds превращает описание формы в Bounds
func (d RegionDef) buildBounds() (Bounds, error) {
	if d.Bounds != nil {
		switch d.Bounds.Type {
		case BoundsSphere:
			return SphereBounds{Radius: d.Bounds.Radius}, nil
		case BoundsBox:
			return BoxBounds{Size: pointToVec(d.Bounds.Size)}, nil
		default:
			return nil, fmt.Errorf("region %q: unknown bounds type %q: %w", d.ID, d.Bounds.Type, ErrMissingBounds)
		}
	}
	if d.Radius != nil {
		return SphereBounds{Radius: *d.Radius}, nil
	}
	return nil, fmt.Errorf("region %q: %w", d.ID, ErrMissingBounds)
}

// buildSpawnTable превращает описание таблицы в SpawnTable (nil, если описания нет)
func (d RegionDef) buildSpawnTable() *SpawnTable {
	if d.SpawnTable == nil {
		return nil
	}
	return &SpawnTable{
		Creatures: buildEntries(d.SpawnTable.Creatures),
		Resources: buildEntries(d.SpawnTable.Resources),
	}
}

func buildEntries(defs []SpawnEntryDef) []SpawnEntry {
	if len(defs) == 0 {
		return nil
	}
	entries := make([]SpawnEntry, 0, len(defs))
	for _, d := range defs {
		e := SpawnEntry{ID: d.ID, Weight: d.Weight}
		if d.PackSize != nil {
			e.PackSize = &PackSize{Min: d.PackSize[0], Max: d.PackSize[1]}
		}
		entries = append(entries, e)
	}
	return entries
}
