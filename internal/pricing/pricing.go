package pricing

import "github.com/Simplici0/costestimator/internal/catalog"

// ItemKind tells whether a line item is priced from the catalog or carries its own cost.
type ItemKind string

const (
	KindCatalog ItemKind = "catalog"
	KindCustom  ItemKind = "custom"
)

// MaterialItem is one entry of a project's material list.
// Catalog items only use ID and Quantity; custom items carry their own name, unit and cost.
type MaterialItem struct {
	Kind        ItemKind `json:"kind"`
	ID          string   `json:"id"`
	Quantity    float64  `json:"quantity"`
	Name        string   `json:"name,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	CostPerUnit float64  `json:"costPerUnit,omitempty"`
	Description string   `json:"description,omitempty"`
}

// LaborItem is one entry of a project's labor list.
type LaborItem struct {
	Kind        ItemKind `json:"kind"`
	ID          string   `json:"id"`
	Hours       float64  `json:"hours"`
	Role        string   `json:"role,omitempty"`
	CostPerHour float64  `json:"costPerHour,omitempty"`
	Description string   `json:"description,omitempty"`
}

// CatalogMaterial references a catalog material by id.
func CatalogMaterial(id string, quantity float64) MaterialItem {
	return MaterialItem{Kind: KindCatalog, ID: id, Quantity: quantity}
}

// CatalogLabor references a catalog labor role by id.
func CatalogLabor(id string, hours float64) LaborItem {
	return LaborItem{Kind: KindCatalog, ID: id, Hours: hours}
}

// ProjectDetails holds the dimensions (meters) and line items of one estimate.
type ProjectDetails struct {
	ProjectName string         `json:"projectName"`
	Length      float64        `json:"length"`
	Width       float64        `json:"width"`
	Height      float64        `json:"height"`
	Materials   []MaterialItem `json:"materials"`
	Labor       []LaborItem    `json:"labor"`
}

// Rates resolves catalog references during a calculation.
type Rates interface {
	Material(id string) (catalog.Material, bool)
	LaborRole(id string) (catalog.Labor, bool)
	OverheadRate() float64
}

// MaterialCost is the costed form of a material line.
type MaterialCost struct {
	Quantity  float64 `json:"quantity"`
	UnitCost  float64 `json:"unitCost"`
	TotalCost float64 `json:"totalCost"`
	Name      string  `json:"name,omitempty"`
	Unit      string  `json:"unit,omitempty"`
}

// LaborCost is the costed form of a labor line.
type LaborCost struct {
	Hours      float64 `json:"hours"`
	HourlyRate float64 `json:"hourlyRate"`
	TotalCost  float64 `json:"totalCost"`
	Role       string  `json:"role,omitempty"`
}

// Breakdown is an immutable snapshot of the costs computed for one ProjectDetails.
type Breakdown struct {
	Materials         map[string]MaterialCost `json:"materials"`
	Labor             map[string]LaborCost    `json:"labor"`
	TotalMaterialCost float64                 `json:"totalMaterialCost"`
	TotalLaborCost    float64                 `json:"totalLaborCost"`
	Subtotal          float64                 `json:"subtotal"`
	Overhead          float64                 `json:"overhead"`
	Total             float64                 `json:"total"`
	// Unresolved lists catalog references that were dropped because the id is unknown.
	Unresolved []string `json:"unresolved,omitempty"`
}

type resolvedItem struct {
	id       string
	name     string
	unit     string
	unitCost float64
	quantity float64
}

// Calculate computes the breakdown for details.
//
// Lines with a quantity (or hours) that is not > 0 are skipped. Catalog lines whose id is
// not in rates are skipped and reported in Unresolved. When two lines share an id the later
// one wins; sums follow the order in which ids first appear so repeated calls are bit-identical.
func Calculate(details ProjectDetails, rates Rates) Breakdown {
	result := Breakdown{
		Materials: make(map[string]MaterialCost),
		Labor:     make(map[string]LaborCost),
	}

	materialOrder := make([]string, 0, len(details.Materials))
	for _, m := range details.Materials {
		if !(m.Quantity > 0) {
			continue
		}
		item, ok := resolveMaterial(m, rates)
		if !ok {
			result.Unresolved = append(result.Unresolved, m.ID)
			continue
		}
		if _, seen := result.Materials[item.id]; !seen {
			materialOrder = append(materialOrder, item.id)
		}
		result.Materials[item.id] = MaterialCost{
			Quantity:  item.quantity,
			UnitCost:  item.unitCost,
			TotalCost: item.quantity * item.unitCost,
			Name:      item.name,
			Unit:      item.unit,
		}
	}

	laborOrder := make([]string, 0, len(details.Labor))
	for _, l := range details.Labor {
		if !(l.Hours > 0) {
			continue
		}
		item, ok := resolveLabor(l, rates)
		if !ok {
			result.Unresolved = append(result.Unresolved, l.ID)
			continue
		}
		if _, seen := result.Labor[item.id]; !seen {
			laborOrder = append(laborOrder, item.id)
		}
		result.Labor[item.id] = LaborCost{
			Hours:      item.quantity,
			HourlyRate: item.unitCost,
			TotalCost:  item.quantity * item.unitCost,
			Role:       item.name,
		}
	}

	for _, id := range materialOrder {
		result.TotalMaterialCost += result.Materials[id].TotalCost
	}
	for _, id := range laborOrder {
		result.TotalLaborCost += result.Labor[id].TotalCost
	}

	overheadRate := 0.0
	if rates != nil {
		overheadRate = rates.OverheadRate()
	}

	result.Subtotal = result.TotalMaterialCost + result.TotalLaborCost
	result.Overhead = result.Subtotal * overheadRate
	result.Total = result.TotalMaterialCost + result.TotalLaborCost + result.Overhead

	return result
}

func resolveMaterial(m MaterialItem, rates Rates) (resolvedItem, bool) {
	switch m.Kind {
	case KindCustom:
		return resolvedItem{id: m.ID, name: m.Name, unit: m.Unit, unitCost: m.CostPerUnit, quantity: m.Quantity}, true
	case KindCatalog, "":
		if rates == nil {
			return resolvedItem{}, false
		}
		entry, ok := rates.Material(m.ID)
		if !ok {
			return resolvedItem{}, false
		}
		return resolvedItem{id: m.ID, name: entry.Name, unit: entry.Unit, unitCost: entry.CostPerUnit, quantity: m.Quantity}, true
	default:
		return resolvedItem{}, false
	}
}

func resolveLabor(l LaborItem, rates Rates) (resolvedItem, bool) {
	switch l.Kind {
	case KindCustom:
		return resolvedItem{id: l.ID, name: l.Role, unitCost: l.CostPerHour, quantity: l.Hours}, true
	case KindCatalog, "":
		if rates == nil {
			return resolvedItem{}, false
		}
		entry, ok := rates.LaborRole(l.ID)
		if !ok {
			return resolvedItem{}, false
		}
		return resolvedItem{id: l.ID, name: entry.Role, unitCost: entry.CostPerHour, quantity: l.Hours}, true
	default:
		return resolvedItem{}, false
	}
}
