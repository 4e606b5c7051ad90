package world

import (
	"fmt"

	"github.com/annel0/mmo-worldcore/internal/logging"
	"github.com/annel0/mmo-worldcore/internal/vec"
)

// WorldGraph - реестр регионов и направленных соединений между ними.
// Единственный владелец идентичности регионов на время сессии мира.
// После построения структура только читается (кроме флагов открытия),
// поэтому методы безопасны для параллельного чтения.
type WorldGraph struct {
	regions     map[string]*Region
	order       []*Region        // Регионы в порядке регистрации
	connections []Connection     // Плоский список направленных рёбер
	outgoing    map[string][]int // from -> индексы рёбер в connections
	index       *RegionIndex
	issues      []error
	start       string
}

type graphOptions struct {
	strictConnections bool
	indexCellSize     float64
	disableIndex      bool
}

// GraphOption настраивает построение графа
type GraphOption func(*graphOptions)

// WithStrictConnections включает проверку концов соединений при построении:
// ссылка на неизвестный регион становится ошибкой ErrDanglingConnection.
func WithStrictConnections() GraphOption {
	return func(o *graphOptions) { o.strictConnections = true }
}

// WithIndexCellSize задаёт размер ячейки пространственного индекса регионов
func WithIndexCellSize(size float64) GraphOption {
	return func(o *graphOptions) { o.indexCellSize = size }
}

// WithoutIndex отключает индекс: GetRegionAt перебирает регионы линейно
func WithoutIndex() GraphOption {
	return func(o *graphOptions) { o.disableIndex = true }
}

// NewWorldGraph строит граф из описания мира.
// Регионы и рёбра хранятся в порядке описания; двунаправленное соединение
// даёт два ребра: объявленное и зеркальное.
func NewWorldGraph(def *Definition, opts ...GraphOption) (*WorldGraph, error) {
	options := graphOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	g := &WorldGraph{
		regions:  make(map[string]*Region),
		outgoing: make(map[string][]int),
	}
	if def == nil {
		def = &Definition{}
	}
	g.start = def.Start

	for _, rd := range def.Regions {
		if _, exists := g.regions[rd.ID]; exists {
			return nil, fmt.Errorf("region %q: %w", rd.ID, ErrDuplicateRegion)
		}

		bounds, err := rd.buildBounds()
		if err != nil {
			return nil, err
		}

		region := &Region{
			ID:         rd.ID,
			Name:       rd.Name,
			Center:     pointToVec(rd.Center),
			Bounds:     bounds,
			Biome:      rd.Biome,
			SpawnTable: rd.buildSpawnTable(),
			ordinal:    len(g.order),
		}
		g.regions[region.ID] = region
		g.order = append(g.order, region)
	}

	for _, cd := range def.Connections {
		conn := Connection{
			From:          cd.From,
			To:            cd.To,
			Type:          cd.Type,
			FromPosition:  pointToVec(cd.FromPosition),
			ToPosition:    pointToVec(cd.ToPosition),
			Bidirectional: cd.Bidirectional,
		}
		g.addEdge(conn)
		if conn.Bidirectional {
			g.addEdge(conn.Reverse())
		}
	}

	g.issues = g.collectIssues()
	if options.strictConnections {
		for _, issue := range g.issues {
			if isDangling(issue) {
				return nil, issue
			}
		}
	}

	if !options.disableIndex {
		g.index = NewRegionIndex(options.indexCellSize)
		for _, r := range g.order {
			g.index.Insert(r)
		}
	}

	logger := logging.GetWorldLogger()
	logger.Debug("Граф мира построен: %d регионов, %d рёбер", len(g.order), len(g.connections))
	for _, issue := range g.issues {
		logger.Warn("Описание мира: %v", issue)
	}

	return g, nil
}

func (g *WorldGraph) addEdge(c Connection) {
	g.outgoing[c.From] = append(g.outgoing[c.From], len(g.connections))
	g.connections = append(g.connections, c)
}

// GetRegion возвращает регион по id
func (g *WorldGraph) GetRegion(id string) (*Region, bool) {
	r, ok := g.regions[id]
	return r, ok
}

// GetRegionAt возвращает первый (в порядке регистрации) регион, содержащий точку.
// Пересекающиеся регионы разрешаются только порядком регистрации.
func (g *WorldGraph) GetRegionAt(p vec.Vec3Float) (*Region, bool) {
	if g.index != nil {
		return g.index.Find(p)
	}
	return g.scanRegionAt(p)
}

// scanRegionAt - линейный перебор, эталон для индекса
func (g *WorldGraph) scanRegionAt(p vec.Vec3Float) (*Region, bool) {
	for _, r := range g.order {
		if r.Contains(p) {
			return r, true
		}
	}
	return nil, false
}

// FindPath ищет кратчайший по числу переходов путь поиском в ширину по направленным рёбрам.
// Возвращает последовательность id от from до to включительно.
// false - если один из id неизвестен или путь не существует.
func (g *WorldGraph) FindPath(from, to string) ([]string, bool) {
	if _, ok := g.regions[from]; !ok {
		return nil, false
	}
	if _, ok := g.regions[to]; !ok {
		return nil, false
	}
	if from == to {
		return []string{from}, true
	}

	parent := map[string]string{from: ""}
	queue := []string{from}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, idx := range g.outgoing[current] {
			next := g.connections[idx].To
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = current

			if next == to {
				return buildPath(parent, from, to), true
			}
			queue = append(queue, next)
		}
	}

	return nil, false
}

func buildPath(parent map[string]string, from, to string) []string {
	var reversed []string
	for id := to; id != from; id = parent[id] {
		reversed = append(reversed, id)
	}
	reversed = append(reversed, from)

	path := make([]string, len(reversed))
	for i, id := range reversed {
		path[len(reversed)-1-i] = id
	}
	return path
}

// MarkDiscovered отмечает регион открытым. Идемпотентна;
// true возвращается только при первом открытии.
func (g *WorldGraph) MarkDiscovered(id string) bool {
	r, ok := g.regions[id]
	if !ok {
		return false
	}
	return r.markDiscovered()
}

// Regions возвращает регионы в порядке регистрации
func (g *WorldGraph) Regions() []*Region {
	out := make([]*Region, len(g.order))
	copy(out, g.order)
	return out
}

// Connections возвращает копию списка направленных рёбер
func (g *WorldGraph) Connections() []Connection {
	out := make([]Connection, len(g.connections))
	copy(out, g.connections)
	return out
}

// ConnectionsFrom возвращает рёбра, выходящие из региона, в порядке хранения
func (g *WorldGraph) ConnectionsFrom(id string) []Connection {
	idxs := g.outgoing[id]
	out := make([]Connection, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, g.connections[idx])
	}
	return out
}

// StartRegion возвращает регион появления игрока, если он задан в описании
func (g *WorldGraph) StartRegion() (*Region, bool) {
	if g.start != "" {
		return g.GetRegion(g.start)
	}
	if len(g.order) > 0 {
		return g.order[0], true
	}
	return nil, false
}

// DiscoveredCount возвращает число открытых регионов
func (g *WorldGraph) DiscoveredCount() int {
	n := 0
	for _, r := range g.order {
		if r.Discovered() {
			n++
		}
	}
	return n
}

func pointToVec(p Point) vec.Vec3Float {
	return vec.FromArray([3]float64(p))
}
