package util

import (
	"math/rand/v2"
	"time"
)

// Source - источник равномерно распределённых чисел в [0, 1).
// Все случайные решения симуляции берутся только отсюда, чтобы прогон можно было воспроизвести.
type Source interface {
	Next() float64
}

// randSource адаптирует *rand.Rand к Source
type randSource struct {
	r *rand.Rand
}

func (s *randSource) Next() float64 {
	return s.r.Float64()
}

// NewSeededSource создает детерминированный источник на базе PCG
func NewSeededSource(seed uint64) Source {
	return &randSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewSource создает источник, засеянный текущим временем
func NewSource() Source {
	return NewSeededSource(uint64(time.Now().UnixNano()))
}

// SequenceSource возвращает заранее заданные значения по кругу.
// Используется в тестах и при воспроизведении записанных прогонов.
type SequenceSource struct {
	Values []float64
	pos    int
}

// NewSequenceSource создает источник из фиксированной последовательности
func NewSequenceSource(values ...float64) *SequenceSource {
	return &SequenceSource{Values: values}
}

// Next возвращает следующее значение последовательности (0 для пустой)
func (s *SequenceSource) Next() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	v := s.Values[s.pos%len(s.Values)]
	s.pos++
	return v
}

// Drawn возвращает количество выданных значений
func (s *SequenceSource) Drawn() int {
	return s.pos
}

// IntRange возвращает равномерное целое в [min, max] включительно.
// Если max < min, возвращается min.
func IntRange(src Source, min, max int) int {
	if max <= min {
		return min
	}
	n := min + int(src.Next()*float64(max-min+1))
	if n > max {
		n = max
	}
	return n
}

// FloatRange возвращает равномерное число в [min, max)
func FloatRange(src Source, min, max float64) float64 {
	return min + src.Next()*(max-min)
}
