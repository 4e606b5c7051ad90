package util

import (
	"github.com/aquilax/go-perlin"
)

// NoiseField - двумерное поле шума Перлина, нормализованное в диапазон [0, 1]
type NoiseField struct {
	noise *perlin.Perlin
	scale float64
}

// NewNoiseField создает поле шума с указанным сидом.
// scale задаёт частоту: координаты делятся на него перед выборкой.
func NewNoiseField(seed int64, scale float64) *NoiseField {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	if scale <= 0 {
		scale = 1
	}
	return &NoiseField{
		noise: perlin.NewPerlin(alpha, beta, n, seed),
		scale: scale,
	}
}

// At возвращает значение шума для указанных координат (от 0 до 1)
func (f *NoiseField) At(x, y float64) float64 {
	// Получаем значение шума (примерно от -1 до 1)
	v := f.noise.Noise2D(x/f.scale, y/f.scale)

	// Преобразуем в диапазон от 0 до 1
	v = (v + 1.0) / 2.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
