package world

import (
	"math"

	"github.com/annel0/mmo-worldcore/internal/util"
	"github.com/annel0/mmo-worldcore/internal/vec"
)

// BoundsKind - тип формы региона
type BoundsKind string

const (
	BoundsSphere BoundsKind = "sphere"
	BoundsBox    BoundsKind = "box"
)

// Bounds описывает форму региона относительно его центра.
// Набор реализаций закрыт: новая форма обязана реализовать все методы,
// иначе не соберётся ни поиск региона по точке, ни генерация точки спавна.
type Bounds interface {
	// Kind возвращает тип формы
	Kind() BoundsKind
	// Contains проверяет, лежит ли точка p внутри формы с центром center
	Contains(center, p vec.Vec3Float) bool
	// Sample выбирает случайную точку внутри формы
	Sample(center vec.Vec3Float, src util.Source) vec.Vec3Float
	// Extents возвращает половины размеров описывающего AABB
	Extents() vec.Vec3Float

	sealed()
}

// SphereBounds - шар заданного радиуса
type SphereBounds struct {
	Radius float64
}

func (SphereBounds) Kind() BoundsKind { return BoundsSphere }

// Contains: евклидово расстояние до центра не больше радиуса (граница включена)
func (b SphereBounds) Contains(center, p vec.Vec3Float) bool {
	return p.DistanceTo(center) <= b.Radius
}

// Sample выбирает r равномерно в [0, radius] и угол θ в [0, 2π) в плоскости XZ.
// Распределение равномерно по радиусу, а не по площади: плотность выше к центру.
func (b SphereBounds) Sample(center vec.Vec3Float, src util.Source) vec.Vec3Float {
	r := src.Next() * b.Radius
	theta := src.Next() * 2 * math.Pi
	return center.Add(vec.Vec3Float{
		X: r * math.Sin(theta),
		Y: 0,
		Z: r * math.Cos(theta),
	})
}

func (b SphereBounds) Extents() vec.Vec3Float {
	return vec.Vec3Float{X: b.Radius, Y: b.Radius, Z: b.Radius}
}

func (SphereBounds) sealed() {}

// BoxBounds - параллелепипед, Size - полные размеры по осям
type BoxBounds struct {
	Size vec.Vec3Float
}

func (BoxBounds) Kind() BoundsKind { return BoundsBox }

// Contains: по каждой оси |p - center| <= size/2
func (b BoxBounds) Contains(center, p vec.Vec3Float) bool {
	return math.Abs(p.X-center.X) <= b.Size.X/2 &&
		math.Abs(p.Y-center.Y) <= b.Size.Y/2 &&
		math.Abs(p.Z-center.Z) <= b.Size.Z/2
}

// Sample выбирает смещение по каждой оси равномерно в [-size/2, +size/2]
func (b BoxBounds) Sample(center vec.Vec3Float, src util.Source) vec.Vec3Float {
	return center.Add(vec.Vec3Float{
		X: (src.Next() - 0.5) * b.Size.X,
		Y: (src.Next() - 0.5) * b.Size.Y,
		Z: (src.Next() - 0.5) * b.Size.Z,
	})
}

func (b BoxBounds) Extents() vec.Vec3Float {
	return b.Size.Scale(0.5)
}

func (BoxBounds) sealed() {}
