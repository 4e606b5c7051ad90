package vec

import "math"

// Vec3Float представляет трехмерный вектор с плавающими координатами.
// Ось Y направлена вверх, плоскость XZ - "пол" мира.
type Vec3Float struct {
	X float64
	Y float64
	Z float64
}

// FromArray создает вектор из массива [x, y, z] (формат описаний мира)
func FromArray(a [3]float64) Vec3Float {
	return Vec3Float{X: a[0], Y: a[1], Z: a[2]}
}

// ToArray возвращает координаты в виде массива [x, y, z]
func (v Vec3Float) ToArray() [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// Add складывает два вектора
func (v Vec3Float) Add(other Vec3Float) Vec3Float {
	return Vec3Float{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub вычитает вектор
func (v Vec3Float) Sub(other Vec3Float) Vec3Float {
	return Vec3Float{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale умножает вектор на скаляр
func (v Vec3Float) Scale(s float64) Vec3Float {
	return Vec3Float{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Length возвращает длину вектора
func (v Vec3Float) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// DistanceTo возвращает евклидово расстояние до другой точки
func (v Vec3Float) DistanceTo(other Vec3Float) float64 {
	return v.Sub(other).Length()
}

// Equals проверяет точное равенство векторов
func (v Vec3Float) Equals(other Vec3Float) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}
