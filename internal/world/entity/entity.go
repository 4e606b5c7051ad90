package entity

import "github.com/annel0/mmo-worldcore/internal/vec"

// Field - признак наличия поля у сущности, используется в запросах к хранилищу
type Field uint8

const (
	FieldTransform Field = 1 << iota // Есть положение в мире
	FieldPlayer                      // Сущность управляется игроком
	FieldRegion                      // Привязана к региону (regionId)
	FieldSpawned                     // Создана процедурным спавном
	FieldType                        // Задан шаблон (type)
)

// Transform - положение и поворот сущности.
// Rotation хранит углы Эйлера в радианах, поворот вокруг вертикали - Rotation.Y.
type Transform struct {
	Position vec.Vec3Float
	Rotation vec.Vec3Float
}

// Data - набор полей, с которыми создаётся сущность
type Data struct {
	IsPlayer  bool
	IsSpawned bool
	RegionID  string
	Type      string
	Transform *Transform
}

// Entity - сущность хранилища. ID выдаёт хранилище при создании.
type Entity struct {
	ID uint64
	Data
}

// fields возвращает маску присутствующих полей
func (e *Entity) fields() Field {
	var f Field
	if e.Transform != nil {
		f |= FieldTransform
	}
	if e.IsPlayer {
		f |= FieldPlayer
	}
	if e.RegionID != "" {
		f |= FieldRegion
	}
	if e.IsSpawned {
		f |= FieldSpawned
	}
	if e.Type != "" {
		f |= FieldType
	}
	return f
}

// Has проверяет, что у сущности есть все перечисленные поля
func (e *Entity) Has(fields ...Field) bool {
	have := e.fields()
	for _, f := range fields {
		if have&f != f {
			return false
		}
	}
	return true
}

// Position возвращает позицию сущности; false - если у неё нет Transform
func (e *Entity) Position() (vec.Vec3Float, bool) {
	if e.Transform == nil {
		return vec.Vec3Float{}, false
	}
	return e.Transform.Position, true
}

// clone возвращает независимую копию сущности
func (e *Entity) clone() Entity {
	c := *e
	if e.Transform != nil {
		t := *e.Transform
		c.Transform = &t
	}
	return c
}
