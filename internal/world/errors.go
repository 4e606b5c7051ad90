package world

import "errors"

var (
	// ErrDuplicateRegion - в описании мира два региона с одинаковым id
	ErrDuplicateRegion = errors.New("duplicate region id")
	// ErrMissingBounds - у региона не задан ни radius, ни bounds
	ErrMissingBounds = errors.New("region has no bounds")
	// ErrDanglingConnection - соединение ссылается на неизвестный регион
	ErrDanglingConnection = errors.New("connection references unknown region")
	// ErrInvalidDefinition - описание мира не прошло проверку схемы или не разобрано
	ErrInvalidDefinition = errors.New("invalid world definition")
)
