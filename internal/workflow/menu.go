package workflow

import (
	"fmt"
	"strings"
)

// Menu is the closed set of dishes a patron can pick from.
type Menu struct {
	dishes []string
	index  map[string]struct{}
}

func NewMenu(dishes []string) (*Menu, error) {
	if len(dishes) == 0 {
		return nil, fmt.Errorf("menu must list at least one dish")
	}
	m := &Menu{index: make(map[string]struct{}, len(dishes))}
	for _, d := range dishes {
		d = strings.TrimSpace(d)
		if d == "" {
			return nil, fmt.Errorf("menu contains an empty dish name")
		}
		if _, dup := m.index[d]; dup {
			return nil, fmt.Errorf("menu lists %q twice", d)
		}
		m.index[d] = struct{}{}
		m.dishes = append(m.dishes, d)
	}
	return m, nil
}

func (m *Menu) Contains(dish string) bool {
	_, ok := m.index[dish]
	return ok
}

// Dishes returns the menu in configured order.
func (m *Menu) Dishes() []string {
	return append([]string(nil), m.dishes...)
}
