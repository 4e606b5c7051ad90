package systems

import (
	"github.com/annel0/mmo-worldcore/internal/util"
	"github.com/annel0/mmo-worldcore/internal/world"
)

// PickWeighted выбирает элемент методом рулетки: вероятность пропорциональна весу.
// Число выбирается в [0, сумма весов) и последовательно уменьшается на вес
// каждого элемента, пока не окажется меньше веса текущего.
// Если выбор не состоялся (например, все веса нулевые), возвращается первый элемент.
// false - только для пустого списка.
func PickWeighted[T any](items []T, weight func(T) float64, src util.Source) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}

	total := 0.0
	for _, it := range items {
		total += weight(it)
	}

	r := src.Next() * total
	for _, it := range items {
		w := weight(it)
		if r < w {
			return it, true
		}
		r -= w
	}
	return items[0], true
}

func entryWeight(e world.SpawnEntry) float64 {
	return e.Weight
}

// PickSpawnEntry выбирает запись таблицы спавна по весам
func PickSpawnEntry(entries []world.SpawnEntry, src util.Source) (world.SpawnEntry, bool) {
	return PickWeighted(entries, entryWeight, src)
}
