package catalog

import (
	"fmt"
)

// Offering — услуга из прайса: ключ, отображаемое имя и стартовая цена.
// Каталог статичен на все время жизни процесса.
type Offering struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	PriceFrom int    `yaml:"price_from"`
}

// Catalog — упорядоченный неизменяемый список услуг с поиском по ключу.
type Catalog struct {
	ordered []Offering
	index   map[string]Offering
}

// New валидирует услуги и строит каталог. Порядок услуг сохраняется
// для отрисовки кнопок.
func New(offerings []Offering) (*Catalog, error) {
	if err := Validate(offerings); err != nil {
		return nil, err
	}

	c := &Catalog{
		ordered: make([]Offering, len(offerings)),
		index:   make(map[string]Offering, len(offerings)),
	}
	copy(c.ordered, offerings)
	for _, o := range offerings {
		c.index[o.ID] = o
	}
	return c, nil
}

// Validate проверяет услуги на пустые ключи, дубликаты и отрицательные цены.
func Validate(offerings []Offering) error {
	if len(offerings) == 0 {
		return fmt.Errorf("catalog is empty")
	}

	seen := make(map[string]bool, len(offerings))
	for _, o := range offerings {
		if o.ID == "" {
			return fmt.Errorf("offering %q has empty id", o.Name)
		}
		if o.Name == "" {
			return fmt.Errorf("offering %q has empty name", o.ID)
		}
		if o.PriceFrom < 0 {
			return fmt.Errorf("offering %q has negative price", o.ID)
		}
		if seen[o.ID] {
			return fmt.Errorf("duplicate offering id: %s", o.ID)
		}
		seen[o.ID] = true
	}
	return nil
}

// All возвращает услуги в исходном порядке.
func (c *Catalog) All() []Offering {
	out := make([]Offering, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Lookup ищет услугу по ключу.
func (c *Catalog) Lookup(id string) (Offering, bool) {
	o, ok := c.index[id]
	return o, ok
}

// Len возвращает количество услуг.
func (c *Catalog) Len() int {
	return len(c.ordered)
}
