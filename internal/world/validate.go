package world

import (
	"errors"
	"fmt"
)

// ValidationIssue - замечание к описанию мира, не мешающее его построению
type ValidationIssue struct {
	Err    error
	Detail string
}

func (v *ValidationIssue) Error() string {
	return fmt.Sprintf("%s: %v", v.Detail, v.Err)
}

func (v *ValidationIssue) Unwrap() error {
	return v.Err
}

// Validate возвращает замечания к графу: соединения с неизвестными концами.
// Граф с такими замечаниями работает, но эти рёбра никогда не срабатывают.
func (g *WorldGraph) Validate() []error {
	out := make([]error, len(g.issues))
	copy(out, g.issues)
	return out
}

func (g *WorldGraph) collectIssues() []error {
	var issues []error
	for i, c := range g.connections {
		for _, id := range [2]string{c.From, c.To} {
			if _, ok := g.regions[id]; ok {
				continue
			}
			issues = append(issues, &ValidationIssue{
				Err:    ErrDanglingConnection,
				Detail: fmt.Sprintf("edge #%d %s -> %s (%s): region %q", i, c.From, c.To, c.Type, id),
			})
		}
	}
	return issues
}

func isDangling(err error) bool {
	return errors.Is(err, ErrDanglingConnection)
}
