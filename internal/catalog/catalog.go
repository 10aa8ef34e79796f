package catalog

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// Material is a recognized construction material priced per unit.
type Material struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Unit        string  `yaml:"unit" json:"unit"`
	CostPerUnit float64 `yaml:"cost_per_unit" json:"costPerUnit"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
}

// Labor is a recognized labor role priced per hour.
type Labor struct {
	ID          string  `yaml:"id" json:"id"`
	Role        string  `yaml:"role" json:"role"`
	CostPerHour float64 `yaml:"cost_per_hour" json:"costPerHour"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
}

// File is the on-disk layout of a catalog.
type File struct {
	OverheadRate float64    `yaml:"overhead_rate"`
	Materials    []Material `yaml:"materials"`
	Labor        []Labor    `yaml:"labor"`
}

// Catalog is read-only reference data shared by every estimate in the process.
type Catalog struct {
	materials    []Material
	labor        []Labor
	materialByID map[string]int
	laborByID    map[string]int
	overheadRate float64
}

// New validates the entries and builds a Catalog indexed by id.
func New(materials []Material, labor []Labor, overheadRate float64) (*Catalog, error) {
	if err := validateRate(overheadRate); err != nil {
		return nil, err
	}

	c := &Catalog{
		materials:    make([]Material, 0, len(materials)),
		labor:        make([]Labor, 0, len(labor)),
		materialByID: make(map[string]int, len(materials)),
		laborByID:    make(map[string]int, len(labor)),
		overheadRate: overheadRate,
	}

	for i, m := range materials {
		m.ID = strings.TrimSpace(m.ID)
		if m.ID == "" {
			return nil, fmt.Errorf("material %d: id is required", i)
		}
		if _, dup := c.materialByID[m.ID]; dup {
			return nil, fmt.Errorf("material %q: duplicate id", m.ID)
		}
		if !validCost(m.CostPerUnit) {
			return nil, fmt.Errorf("material %q: cost_per_unit must be a finite number >= 0", m.ID)
		}
		c.materialByID[m.ID] = len(c.materials)
		c.materials = append(c.materials, m)
	}

	for i, l := range labor {
		l.ID = strings.TrimSpace(l.ID)
		if l.ID == "" {
			return nil, fmt.Errorf("labor %d: id is required", i)
		}
		if _, dup := c.laborByID[l.ID]; dup {
			return nil, fmt.Errorf("labor %q: duplicate id", l.ID)
		}
		if !validCost(l.CostPerHour) {
			return nil, fmt.Errorf("labor %q: cost_per_hour must be a finite number >= 0", l.ID)
		}
		c.laborByID[l.ID] = len(c.labor)
		c.labor = append(c.labor, l)
	}

	return c, nil
}

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a YAML catalog from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog yaml: %w", err)
	}
	return New(f.Materials, f.Labor, f.OverheadRate)
}

// WithOverheadRate returns a copy of c using a different overhead rate.
func (c *Catalog) WithOverheadRate(rate float64) (*Catalog, error) {
	return New(c.materials, c.labor, rate)
}

// Materials lists materials in declaration order.
func (c *Catalog) Materials() []Material {
	if c == nil {
		return []Material{}
	}
	out := make([]Material, len(c.materials))
	copy(out, c.materials)
	return out
}

// Labor lists labor roles in declaration order.
func (c *Catalog) Labor() []Labor {
	if c == nil {
		return []Labor{}
	}
	out := make([]Labor, len(c.labor))
	copy(out, c.labor)
	return out
}

// Material looks up a material by id. A nil Catalog has no entries.
func (c *Catalog) Material(id string) (Material, bool) {
	if c == nil {
		return Material{}, false
	}
	i, ok := c.materialByID[id]
	if !ok {
		return Material{}, false
	}
	return c.materials[i], true
}

// LaborRole looks up a labor role by id.
func (c *Catalog) LaborRole(id string) (Labor, bool) {
	if c == nil {
		return Labor{}, false
	}
	i, ok := c.laborByID[id]
	if !ok {
		return Labor{}, false
	}
	return c.labor[i], true
}

// OverheadRate is the fraction applied on top of the material and labor totals.
func (c *Catalog) OverheadRate() float64 {
	if c == nil {
		return 0
	}
	return c.overheadRate
}

func validCost(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func validateRate(rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 || rate > 1 {
		return fmt.Errorf("overhead rate must be between 0 and 1, got %v", rate)
	}
	return nil
}
