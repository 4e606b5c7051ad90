package world

import (
	"math"
	"sort"

	"github.com/annel0/mmo-worldcore/internal/vec"
)

const (
	defaultIndexCellSize = 64.0

	// Регионы, покрывающие больше ячеек, хранятся в отдельном списке и проверяются всегда
	maxCellsPerRegion = 4096
)

// RegionIndex - равномерная сетка в плоскости XZ для поиска региона по точке.
// Каждая ячейка хранит регионы, чей AABB её задевает, в порядке регистрации,
// поэтому результат Find совпадает с линейным перебором.
type RegionIndex struct {
	cellSize float64
	cells    map[vec.Vec2][]*Region
	wide     []*Region
	count    int
}

// NewRegionIndex создаёт индекс с указанным размером ячейки
func NewRegionIndex(cellSize float64) *RegionIndex {
	if cellSize <= 0 {
		cellSize = defaultIndexCellSize
	}
	return &RegionIndex{
		cellSize: cellSize,
		cells:    make(map[vec.Vec2][]*Region),
	}
}

// Insert добавляет регион. Регионы нужно добавлять в порядке регистрации.
func (ri *RegionIndex) Insert(r *Region) {
	ri.count++

	ext := r.Bounds.Extents()
	if !isFinite(ext) || !isFinite(r.Center) {
		ri.wide = insertOrdered(ri.wide, r)
		return
	}

	// Размер покрытия считаем во float, чтобы огромные регионы не переполнили int
	spanX := math.Floor((r.Center.X+ext.X)/ri.cellSize) - math.Floor((r.Center.X-ext.X)/ri.cellSize) + 1
	spanZ := math.Floor((r.Center.Z+ext.Z)/ri.cellSize) - math.Floor((r.Center.Z-ext.Z)/ri.cellSize) + 1
	if spanX*spanZ > maxCellsPerRegion {
		ri.wide = insertOrdered(ri.wide, r)
		return
	}

	minCell := ri.cellOf(r.Center.X-ext.X, r.Center.Z-ext.Z)
	maxCell := ri.cellOf(r.Center.X+ext.X, r.Center.Z+ext.Z)

	for x := minCell.X; x <= maxCell.X; x++ {
		for z := minCell.Y; z <= maxCell.Y; z++ {
			key := vec.Vec2{X: x, Y: z}
			ri.cells[key] = insertOrdered(ri.cells[key], r)
		}
	}
}

// Find возвращает первый по порядку регистрации регион, содержащий точку
func (ri *RegionIndex) Find(p vec.Vec3Float) (*Region, bool) {
	if !isFinite(p) {
		return nil, false
	}

	cell := ri.cells[ri.cellOf(p.X, p.Z)]
	wide := ri.wide

	// Слияние двух упорядоченных списков кандидатов
	i, j := 0, 0
	for i < len(cell) || j < len(wide) {
		var candidate *Region
		if j >= len(wide) || (i < len(cell) && cell[i].ordinal < wide[j].ordinal) {
			candidate = cell[i]
			i++
		} else {
			candidate = wide[j]
			j++
		}
		if candidate.Contains(p) {
			return candidate, true
		}
	}
	return nil, false
}

// Len возвращает количество проиндексированных регионов
func (ri *RegionIndex) Len() int {
	return ri.count
}

// cellOf переводит координаты плоскости XZ в ключ ячейки
func (ri *RegionIndex) cellOf(x, z float64) vec.Vec2 {
	return vec.Vec2{
		X: int(math.Floor(x / ri.cellSize)),
		Y: int(math.Floor(z / ri.cellSize)),
	}
}

func insertOrdered(list []*Region, r *Region) []*Region {
	i := sort.Search(len(list), func(i int) bool { return list[i].ordinal >= r.ordinal })
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = r
	return list
}

func isFinite(v vec.Vec3Float) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
