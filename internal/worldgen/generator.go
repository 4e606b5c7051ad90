// Package worldgen строит описание мира по шуму Перлина:
// сетку регионов с биомами, проходы между соседями и случайные порталы.
package worldgen

import (
	"fmt"
	"math"

	"github.com/annel0/mmo-worldcore/internal/util"
	"github.com/annel0/mmo-worldcore/internal/world"
)

// Biome - биом региона
type Biome string

const (
	BiomePlains    Biome = "plains"
	BiomeDesert    Biome = "desert"
	BiomeForest    Biome = "forest"
	BiomeMountains Biome = "mountains"
	BiomeWater     Biome = "water"
	BiomeDeepWater Biome = "deep_water"
)

// Пороговые значения высоты
const (
	DeepWaterMax    = 0.20 // Ниже - глубинная вода
	ShallowWaterMax = 0.30 // Ниже - мелководье
	MountainStart   = 0.70 // Выше - горы
)

// Generator генерирует описание мира
type Generator struct {
	Seed         int64   // Сид для генерации шума
	Cols, Rows   int     // Размер сетки регионов
	Spacing      float64 // Расстояние между центрами соседних регионов
	HeightScale  float64 // Масштаб шума высоты
	BiomeScale   float64 // Масштаб шума биомов
	MaxAltitude  float64 // Высота центра региона при значении шума 1
	PortalChance float64 // Вероятность портала из региона (от 0 до 1)
}

// NewGenerator создаёт генератор с настройками по умолчанию
func NewGenerator(seed int64) *Generator {
	return &Generator{
		Seed:         seed,
		Cols:         4,
		Rows:         4,
		Spacing:      200,
		HeightScale:  600,
		BiomeScale:   900,
		MaxAltitude:  40,
		PortalChance: 0.1,
	}
}

type cell struct {
	id     string
	center world.Point
	radius float64
}

// Generate строит описание мира. Результат детерминирован для одного сида.
func (g *Generator) Generate() (*world.Definition, error) {
	if g.Cols <= 0 || g.Rows <= 0 {
		return nil, fmt.Errorf("worldgen: grid %dx%d is empty", g.Cols, g.Rows)
	}
	if g.Spacing <= 0 {
		return nil, fmt.Errorf("worldgen: spacing must be positive, got %v", g.Spacing)
	}

	heights := util.NewNoiseField(g.Seed, g.HeightScale)
	biomes := util.NewNoiseField(g.Seed+42, g.BiomeScale)
	src := util.NewSeededSource(uint64(g.Seed))

	def := &world.Definition{}
	cells := make([][]cell, g.Cols)
	radius := g.Spacing * 0.35

	for i := 0; i < g.Cols; i++ {
		cells[i] = make([]cell, g.Rows)
		for j := 0; j < g.Rows; j++ {
			x, z := float64(i)*g.Spacing, float64(j)*g.Spacing
			height := heights.At(x, z)
			biome := BiomeFor(height, biomes.At(x, z))

			c := cell{
				id:     fmt.Sprintf("cell-%d-%d", i, j),
				center: world.Point{x, math.Round(height * g.MaxAltitude), z},
				radius: radius,
			}
			cells[i][j] = c

			rd := world.RegionDef{
				ID:         c.id,
				Name:       fmt.Sprintf("%s %d-%d", biome, i, j),
				Center:     c.center,
				Biome:      string(biome),
				SpawnTable: SpawnTableFor(biome),
			}
			if biome == BiomeMountains {
				// Горы - вытянутые коробки
				rd.Bounds = &world.BoundsDef{
					Type: world.BoundsBox,
					Size: world.Point{2 * radius, radius, 2 * radius},
				}
			} else {
				r := radius
				rd.Radius = &r
			}
			def.Regions = append(def.Regions, rd)

			if def.Start == "" && biome != BiomeWater && biome != BiomeDeepWater {
				def.Start = c.id
			}
		}
	}
	if def.Start == "" {
		def.Start = cells[0][0].id
	}

	// Проходы между соседями по X и Z
	for i := 0; i < g.Cols; i++ {
		for j := 0; j < g.Rows; j++ {
			if i+1 < g.Cols {
				def.Connections = append(def.Connections, pathBetween(cells[i][j], cells[i+1][j]))
			}
			if j+1 < g.Rows {
				def.Connections = append(def.Connections, pathBetween(cells[i][j], cells[i][j+1]))
			}
		}
	}

	// Порталы ведут в случайный регион, кроме исходного
	total := g.Cols * g.Rows
	if total > 1 && g.PortalChance > 0 {
		for n := 0; n < total; n++ {
			if src.Next() >= g.PortalChance {
				continue
			}
			target := util.IntRange(src, 0, total-2)
			if target >= n {
				target++
			}
			from, to := cells[n/g.Rows][n%g.Rows], cells[target/g.Rows][target%g.Rows]
			def.Connections = append(def.Connections, world.ConnectionDef{
				From:         from.id,
				To:           to.id,
				Type:         world.ConnectionPortal,
				FromPosition: world.Point{from.center[0] + from.radius*0.5, from.center[1], from.center[2]},
				ToPosition:   to.center,
			})
		}
	}

	return def, nil
}

// pathBetween создаёт двусторонний проход; точки входа лежат внутри регионов
func pathBetween(a, b cell) world.ConnectionDef {
	dx, dy, dz := b.center[0]-a.center[0], b.center[1]-a.center[1], b.center[2]-a.center[2]
	length := math.Sqrt(dx*dx + dy*dy + dz*dz)
	ux, uy, uz := dx/length, dy/length, dz/length

	return world.ConnectionDef{
		From:          a.id,
		To:            b.id,
		Type:          world.ConnectionPath,
		FromPosition:  world.Point{a.center[0] + ux*a.radius*0.8, a.center[1] + uy*a.radius*0.8, a.center[2] + uz*a.radius*0.8},
		ToPosition:    world.Point{b.center[0] - ux*b.radius*0.8, b.center[1] - uy*b.radius*0.8, b.center[2] - uz*b.radius*0.8},
		Bidirectional: true,
	}
}

// BiomeFor определяет биом по высоте и значению шума биомов (оба от 0 до 1)
func BiomeFor(height, biomeValue float64) Biome {
	// Водные биомы в низинах
	if height < DeepWaterMax {
		return BiomeDeepWater
	}
	if height < ShallowWaterMax {
		return BiomeWater
	}

	// Горные биомы на возвышенностях
	if height > MountainStart {
		return BiomeMountains
	}

	switch {
	case biomeValue < 0.35:
		return BiomeDesert
	case biomeValue > 0.65:
		return BiomeForest
	default:
		return BiomePlains
	}
}

func pack(min, max int) *[2]int {
	return &[2]int{min, max}
}

// SpawnTableFor возвращает таблицу спавна для биома
func SpawnTableFor(b Biome) *world.SpawnTableDef {
	switch b {
	case BiomeForest:
		return &world.SpawnTableDef{
			Creatures: []world.SpawnEntryDef{
				{ID: "wolf", Weight: 2, PackSize: pack(2, 4)},
				{ID: "deer", Weight: 3, PackSize: pack(1, 3)},
			},
			Resources: []world.SpawnEntryDef{
				{ID: "mushroom", Weight: 2},
				{ID: "berry_bush", Weight: 1},
			},
		}
	case BiomePlains:
		return &world.SpawnTableDef{
			Creatures: []world.SpawnEntryDef{
				{ID: "rabbit", Weight: 3, PackSize: pack(1, 3)},
				{ID: "cow", Weight: 1, PackSize: pack(2, 5)},
			},
			Resources: []world.SpawnEntryDef{{ID: "flax", Weight: 1}},
		}
	case BiomeDesert:
		return &world.SpawnTableDef{
			Creatures: []world.SpawnEntryDef{{ID: "scorpion", Weight: 1}},
			Resources: []world.SpawnEntryDef{{ID: "cactus", Weight: 1}},
		}
	case BiomeMountains:
		return &world.SpawnTableDef{
			Creatures: []world.SpawnEntryDef{{ID: "goat", Weight: 1, PackSize: pack(1, 2)}},
			Resources: []world.SpawnEntryDef{
				{ID: "iron_ore", Weight: 3},
				{ID: "gold_ore", Weight: 1},
			},
		}
	case BiomeWater:
		return &world.SpawnTableDef{
			Creatures: []world.SpawnEntryDef{{ID: "fish", Weight: 1, PackSize: pack(3, 6)}},
		}
	default:
		return nil
	}
}
