package world

import (
	"sync/atomic"

	"github.com/annel0/mmo-worldcore/internal/vec"
)

// PackSize - диапазон размера стаи [Min, Max] включительно
type PackSize struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// SpawnEntry - шаблон, который может появиться в регионе
type SpawnEntry struct {
	ID       string    `json:"id"`                 // Идентификатор шаблона (тип создаваемой сущности)
	Weight   float64   `json:"weight"`             // Относительная вероятность выбора, ожидается > 0
	PackSize *PackSize `json:"packSize,omitempty"` // nil - одна особь
}

// SpawnTable - взвешенные списки существ и ресурсов региона
type SpawnTable struct {
	Creatures []SpawnEntry `json:"creatures,omitempty"`
	Resources []SpawnEntry `json:"resources,omitempty"`
}

// IsEmpty сообщает, что в таблице нечего спавнить
func (t *SpawnTable) IsEmpty() bool {
	return t == nil || (len(t.Creatures) == 0 && len(t.Resources) == 0)
}

// Region - именованная ограниченная область мира.
// После загрузки мира неизменяема, кроме флага открытия.
type Region struct {
	ID         string
	Name       string
	Center     vec.Vec3Float
	Bounds     Bounds
	Biome      string
	SpawnTable *SpawnTable

	ordinal    int // Порядок регистрации, используется для разрешения пересечений
	discovered atomic.Bool
}

// Contains проверяет, находится ли точка внутри региона
func (r *Region) Contains(p vec.Vec3Float) bool {
	return r.Bounds.Contains(r.Center, p)
}

// Discovered сообщает, заходил ли игрок в регион хотя бы раз
func (r *Region) Discovered() bool {
	return r.discovered.Load()
}

// Ordinal возвращает порядковый номер регистрации региона
func (r *Region) Ordinal() int {
	return r.ordinal
}

// markDiscovered переводит флаг false → true; возвращает true только при первом переходе
func (r *Region) markDiscovered() bool {
	return r.discovered.CompareAndSwap(false, true)
}
