package importer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Simplici0/costestimator/internal/pricing"
)

// Options tunes how strictly candidates are checked.
type Options struct {
	// Strict rejects catalog references whose id is not in the catalog.
	// When false those lines are kept (the engine drops them) and reported as warnings.
	Strict bool
}

// Result is a validated project plus the warnings raised while normalizing it.
type Result struct {
	Details  pricing.ProjectDetails `json:"details"`
	Warnings []Warning              `json:"warnings,omitempty"`
}

// Importer turns loosely typed estimate candidates into pricing.ProjectDetails.
type Importer struct {
	rates pricing.Rates
	opts  Options
	newID func() string
}

// New returns an Importer that checks catalog references against rates.
func New(rates pricing.Rates, opts Options) *Importer {
	return &Importer{rates: rates, opts: opts, newID: uuid.NewString}
}

// ImportText extracts the estimate object from generated text and imports it.
func (im *Importer) ImportText(text string) (Result, error) {
	payload, err := ExtractJSON(text)
	if err != nil {
		return Result{}, err
	}

	var candidate map[string]any
	if err := json.Unmarshal(payload, &candidate); err != nil {
		return Result{}, &ParseError{Reason: "decode estimate object", Err: err}
	}
	return im.Import(candidate)
}

// Import validates and normalizes a decoded candidate.
// All field problems are collected into a single *ValidationError.
func (im *Importer) Import(candidate map[string]any) (Result, error) {
	if candidate == nil {
		return Result{}, &ParseError{Reason: "empty estimate object"}
	}

	s := &session{im: im, materialIDs: map[string]bool{}, laborIDs: map[string]bool{}}
	var details pricing.ProjectDetails

	details.ProjectName = s.projectName(candidate["projectName"])
	details.Length = s.dimension("length", candidate)
	details.Width = s.dimension("width", candidate)
	details.Height = s.dimension("height", candidate)

	for i, raw := range s.list("materials", candidate["materials"]) {
		if item, ok := s.material(fmt.Sprintf("materials[%d]", i), raw); ok {
			details.Materials = append(details.Materials, item)
		}
	}
	for i, raw := range s.list("labor", candidate["labor"]) {
		if item, ok := s.labor(fmt.Sprintf("labor[%d]", i), raw); ok {
			details.Labor = append(details.Labor, item)
		}
	}

	if len(s.problems) > 0 {
		return Result{Warnings: s.warnings}, &ValidationError{Problems: s.problems}
	}
	if details.Materials == nil {
		details.Materials = []pricing.MaterialItem{}
	}
	if details.Labor == nil {
		details.Labor = []pricing.LaborItem{}
	}
	return Result{Details: details, Warnings: s.warnings}, nil
}

type session struct {
	im          *Importer
	problems    []FieldError
	warnings    []Warning
	materialIDs map[string]bool
	laborIDs    map[string]bool
}

func (s *session) fail(field, format string, args ...any) {
	s.problems = append(s.problems, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (s *session) warn(field, format string, args ...any) {
	s.warnings = append(s.warnings, Warning{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (s *session) projectName(v any) string {
	if v == nil {
		s.fail("projectName", "is required")
		return ""
	}
	name, ok := v.(string)
	if !ok {
		s.fail("projectName", "must be a string")
		return ""
	}
	name = strings.TrimSpace(name)
	if name == "" {
		s.fail("projectName", "must not be empty")
	}
	return name
}

func (s *session) dimension(field string, candidate map[string]any) float64 {
	v, present := candidate[field]
	if !present || v == nil {
		s.fail(field, "is required")
		return 0
	}
	n, ok := s.nonNegative(field, v)
	if !ok {
		return 0
	}
	return n
}

func (s *session) list(field string, v any) []any {
	if v == nil {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		s.fail(field, "must be an array")
		return nil
	}
	return items
}

// nonNegative coerces numbers and numeric strings and rejects NaN, infinities and negatives.
func (s *session) nonNegative(field string, v any) (float64, bool) {
	n, ok := toNumber(v)
	if !ok {
		s.fail(field, "must be a number")
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		s.fail(field, "must be finite")
		return 0, false
	}
	if n < 0 {
		s.fail(field, "must be >= 0, got %v", n)
		return 0, false
	}
	return n, true
}

func (s *session) material(field string, raw any) (pricing.MaterialItem, bool) {
	entry, ok := raw.(map[string]any)
	if !ok {
		s.fail(field, "must be an object")
		return pricing.MaterialItem{}, false
	}

	ref, isRef, ok := s.reference(field, entry, "materialId", "costPerUnit")
	if !ok {
		return pricing.MaterialItem{}, false
	}
	quantity, qtyOK := s.amount(field+".quantity", entry["quantity"])

	if isRef {
		known := true
		if s.im.rates != nil {
			_, known = s.im.rates.Material(ref)
		}
		if !s.claim(field, ref, s.materialIDs) || !qtyOK || !s.knownReference(field, ref, known) {
			return pricing.MaterialItem{}, false
		}
		return pricing.CatalogMaterial(ref, quantity), true
	}

	item := pricing.MaterialItem{
		Kind:        pricing.KindCustom,
		ID:          s.optionalString(field+".id", entry["id"]),
		Name:        s.optionalString(field+".name", entry["name"]),
		Unit:        s.optionalString(field+".unit", entry["unit"]),
		Description: s.optionalString(field+".description", entry["description"]),
		Quantity:    quantity,
	}
	if item.Name == "" {
		s.fail(field+".name", "is required for materials without materialId")
		return pricing.MaterialItem{}, false
	}
	cost, costOK := s.cost(field+".costPerUnit", entry["costPerUnit"], quantity)
	if item.ID == "" {
		item.ID = s.im.newID()
	}
	if !s.claim(field, item.ID, s.materialIDs) || !qtyOK || !costOK {
		return pricing.MaterialItem{}, false
	}
	item.CostPerUnit = cost
	return item, true
}

func (s *session) labor(field string, raw any) (pricing.LaborItem, bool) {
	entry, ok := raw.(map[string]any)
	if !ok {
		s.fail(field, "must be an object")
		return pricing.LaborItem{}, false
	}

	ref, isRef, ok := s.reference(field, entry, "laborId", "costPerHour")
	if !ok {
		return pricing.LaborItem{}, false
	}
	hours, hoursOK := s.amount(field+".hours", entry["hours"])

	if isRef {
		known := true
		if s.im.rates != nil {
			_, known = s.im.rates.LaborRole(ref)
		}
		if !s.claim(field, ref, s.laborIDs) || !hoursOK || !s.knownReference(field, ref, known) {
			return pricing.LaborItem{}, false
		}
		return pricing.CatalogLabor(ref, hours), true
	}

	item := pricing.LaborItem{
		Kind:        pricing.KindCustom,
		ID:          s.optionalString(field+".id", entry["id"]),
		Role:        s.optionalString(field+".role", entry["role"]),
		Description: s.optionalString(field+".description", entry["description"]),
		Hours:       hours,
	}
	if item.Role == "" {
		s.fail(field+".role", "is required for labor without laborId")
		return pricing.LaborItem{}, false
	}
	cost, costOK := s.cost(field+".costPerHour", entry["costPerHour"], hours)
	if item.ID == "" {
		item.ID = s.im.newID()
	}
	if !s.claim(field, item.ID, s.laborIDs) || !hoursOK || !costOK {
		return pricing.LaborItem{}, false
	}
	item.CostPerHour = cost
	return item, true
}

// reference reports the catalog id of an entry, if it is a catalog reference.
// An entry is a reference when it has refKey, or kind "catalog" with an id.
// References must not also embed a cost.
func (s *session) reference(field string, entry map[string]any, refKey, costKey string) (string, bool, bool) {
	kind, _ := entry["kind"].(string)
	rawRef, hasRef := entry[refKey]
	if !hasRef && kind == string(pricing.KindCatalog) {
		rawRef, hasRef = entry["id"]
	}
	if !hasRef {
		if kind == string(pricing.KindCatalog) {
			s.fail(field+".id", "is required for catalog items")
			return "", false, false
		}
		if kind != "" && kind != string(pricing.KindCustom) {
			s.fail(field+".kind", "unknown kind %q", kind)
			return "", false, false
		}
		return "", false, true
	}

	ref, ok := rawRef.(string)
	ref = strings.TrimSpace(ref)
	if !ok || ref == "" {
		s.fail(field+"."+refKey, "must be a non-empty string")
		return "", false, false
	}
	if _, embedded := entry[costKey]; embedded {
		s.fail(field, "ambiguous line item: %s and %s are mutually exclusive", refKey, costKey)
		return "", false, false
	}
	return ref, true, true
}

func (s *session) amount(field string, v any) (float64, bool) {
	if v == nil {
		s.fail(field, "is required")
		return 0, false
	}
	return s.nonNegative(field, v)
}

// cost defaults a missing cost to 0 and flags zero-cost lines that would be billed.
func (s *session) cost(field string, v any, amount float64) (float64, bool) {
	if v == nil {
		s.warn(field, "missing, defaulted to 0")
		return 0, true
	}
	c, ok := s.nonNegative(field, v)
	if !ok {
		return 0, false
	}
	if c == 0 && amount > 0 {
		s.warn(field, "is 0; the line adds nothing to the total")
	}
	return c, true
}

func (s *session) knownReference(field, id string, known bool) bool {
	if known {
		return true
	}
	if s.im.opts.Strict {
		s.fail(field, "unknown catalog id %q", id)
		return false
	}
	s.warn(field, "unknown catalog id %q is left out of the breakdown", id)
	return true
}

func (s *session) claim(field, id string, seen map[string]bool) bool {
	if seen[id] {
		s.fail(field, "duplicate id %q", id)
		return false
	}
	seen[id] = true
	return true
}

func (s *session) optionalString(field string, v any) string {
	if v == nil {
		return ""
	}
	str, ok := v.(string)
	if !ok {
		s.fail(field, "must be a string")
		return ""
	}
	return strings.TrimSpace(str)
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
