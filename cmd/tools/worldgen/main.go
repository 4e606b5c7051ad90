package main

import (
	"flag"
	"log"
	"time"

	"github.com/annel0/mmo-worldcore/internal/world"
	"github.com/annel0/mmo-worldcore/internal/worldgen"
)

func main() {
	var (
		out     = flag.String("out", "configs/world.yaml", "Output file (.yaml or .json by extension)")
		seed    = flag.Int64("seed", 0, "Noise seed (0 - current time)")
		cols    = flag.Int("cols", 4, "Grid columns")
		rows    = flag.Int("rows", 4, "Grid rows")
		spacing = flag.Float64("spacing", 200, "Distance between region centers")
		portals = flag.Float64("portals", 0.1, "Portal chance per region (0..1)")
	)
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	gen := worldgen.NewGenerator(*seed)
	gen.Cols, gen.Rows = *cols, *rows
	gen.Spacing = *spacing
	gen.PortalChance = *portals

	def, err := gen.Generate()
	if err != nil {
		log.Fatalf("❌ Ошибка генерации мира: %v", err)
	}

	// Проверяем, что описание собирается в граф
	graph, err := world.NewWorldGraph(def)
	if err != nil {
		log.Fatalf("❌ Описание мира некорректно: %v", err)
	}

	if err := world.SaveDefinition(*out, def); err != nil {
		log.Fatalf("❌ Ошибка записи %s: %v", *out, err)
	}

	log.Printf("🌍 Мир сгенерирован: сид %d, регионов %d, соединений %d, старт %s → %s",
		*seed, len(graph.Regions()), len(graph.Connections()), def.Start, *out)
}
