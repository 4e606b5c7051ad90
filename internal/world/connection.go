package world

import "github.com/annel0/mmo-worldcore/internal/vec"

// ConnectionType - тип соединения между регионами
type ConnectionType string

const (
	// ConnectionPath - обычный проход, игрок пересекает его пешком
	ConnectionPath ConnectionType = "path"
	// ConnectionPortal - портал, мгновенно переносит игрока
	ConnectionPortal ConnectionType = "portal"
)

// Connection - направленное ребро графа мира.
// FromPosition и ToPosition - точки входа и выхода в соответствующих регионах.
type Connection struct {
	From          string
	To            string
	Type          ConnectionType
	FromPosition  vec.Vec3Float
	ToPosition    vec.Vec3Float
	Bidirectional bool
}

// Reverse возвращает зеркальное ребро: концы и позиции меняются местами, тип тот же
func (c Connection) Reverse() Connection {
	return Connection{
		From:          c.To,
		To:            c.From,
		Type:          c.Type,
		FromPosition:  c.ToPosition,
		ToPosition:    c.FromPosition,
		Bidirectional: c.Bidirectional,
	}
}

// IsPortal сообщает, является ли соединение порталом
func (c Connection) IsPortal() bool {
	return c.Type == ConnectionPortal
}
