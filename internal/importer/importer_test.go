package importer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/costestimator/internal/catalog"
	"github.com/Simplici0/costestimator/internal/pricing"
)

func newTestImporter(t *testing.T, opts Options) *Importer {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)

	im := New(c, opts)
	n := 0
	im.newID = func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
	return im
}

func problemFields(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	fields := make([]string, 0, len(verr.Problems))
	for _, p := range verr.Problems {
		fields = append(fields, p.Field)
	}
	return fields
}

func TestImportText_ProseAndTrailingComma(t *testing.T) {
	im := newTestImporter(t, Options{Strict: true})
	text := `Here is the plan: { "projectName": "Shed", "length": 3, "width":2, "height":2.5, "materials": [{"materialId":"concrete","quantity":5,}], "labor": [] } Thanks!`

	result, err := im.ImportText(text)
	require.NoError(t, err)

	d := result.Details
	assert.Equal(t, "Shed", d.ProjectName)
	assert.Equal(t, 3.0, d.Length)
	assert.Equal(t, 2.0, d.Width)
	assert.Equal(t, 2.5, d.Height)
	require.Len(t, d.Materials, 1)
	assert.Equal(t, pricing.CatalogMaterial("concrete", 5), d.Materials[0])
	assert.Empty(t, d.Labor)
	assert.NotNil(t, d.Labor)
	assert.Empty(t, result.Warnings)
}

func TestImportText_NoJSONIsParseFailure(t *testing.T) {
	im := newTestImporter(t, Options{Strict: true})

	_, err := im.ImportText("Sorry, I cannot help with that project.")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
	assert.False(t, errors.Is(err, ErrValidation))
}

func TestImportText_ValidJSONWithBadFieldsIsValidationFailure(t *testing.T) {
	im := newTestImporter(t, Options{Strict: true})

	_, err := im.ImportText(`{"projectName": "", "length": -1, "width": 2, "height": 2}`)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrParse))
	assert.ElementsMatch(t, []string{"projectName", "length"}, problemFields(t, err))
}

func TestImport_RequiredFields(t *testing.T) {
	im := newTestImporter(t, Options{})

	_, err := im.Import(map[string]any{})

	require.Error(t, err)
	assert.ElementsMatch(t, []string{"projectName", "length", "width", "height"}, problemFields(t, err))
}

func TestImport_Dimensions(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    float64
		wantErr bool
	}{
		{name: "number", value: 4.5, want: 4.5},
		{name: "zero", value: 0.0, want: 0},
		{name: "numeric string", value: " 12.25 ", want: 12.25},
		{name: "negative", value: -2.0, wantErr: true},
		{name: "not numeric", value: "tall", wantErr: true},
		{name: "nan string", value: "NaN", wantErr: true},
		{name: "infinite string", value: "+Inf", wantErr: true},
		{name: "bool", value: true, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			im := newTestImporter(t, Options{})
			result, err := im.Import(map[string]any{
				"projectName": "Garage",
				"length":      tc.value,
				"width":       1.0,
				"height":      1.0,
			})
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, []string{"length"}, problemFields(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.Details.Length)
		})
	}
}

func TestImport_CatalogReferences(t *testing.T) {
	base := func(materials, labor []any) map[string]any {
		return map[string]any{
			"projectName": "Wall", "length": 5.0, "width": 0.3, "height": 2.0,
			"materials": materials, "labor": labor,
		}
	}

	t.Run("known ids", func(t *testing.T) {
		im := newTestImporter(t, Options{Strict: true})
		result, err := im.Import(base(
			[]any{map[string]any{"materialId": "brick", "quantity": 400.0}},
			[]any{map[string]any{"laborId": "mason", "hours": "16"}},
		))
		require.NoError(t, err)
		assert.Equal(t, []pricing.MaterialItem{pricing.CatalogMaterial("brick", 400)}, result.Details.Materials)
		assert.Equal(t, []pricing.LaborItem{pricing.CatalogLabor("mason", 16)}, result.Details.Labor)
	})

	t.Run("unknown id is rejected in strict mode", func(t *testing.T) {
		im := newTestImporter(t, Options{Strict: true})
		_, err := im.Import(base(
			[]any{map[string]any{"materialId": "granite", "quantity": 1.0}},
			[]any{map[string]any{"laborId": "welder", "hours": 1.0}},
		))
		require.Error(t, err)
		assert.Equal(t, []string{"materials[0]", "labor[0]"}, problemFields(t, err))
	})

	t.Run("unknown id is a warning in lenient mode", func(t *testing.T) {
		im := newTestImporter(t, Options{})
		result, err := im.Import(base(
			[]any{map[string]any{"materialId": "granite", "quantity": 1.0}},
			nil,
		))
		require.NoError(t, err)
		require.Len(t, result.Details.Materials, 1)
		require.Len(t, result.Warnings, 1)
		assert.Equal(t, "materials[0]", result.Warnings[0].Field)
	})

	t.Run("kind catalog with id", func(t *testing.T) {
		im := newTestImporter(t, Options{Strict: true})
		result, err := im.Import(base(
			[]any{map[string]any{"kind": "catalog", "id": "sand", "quantity": 2.0}},
			[]any{map[string]any{"kind": "catalog", "id": "plumber", "hours": 3.0}},
		))
		require.NoError(t, err)
		assert.Equal(t, pricing.CatalogMaterial("sand", 2), result.Details.Materials[0])
		assert.Equal(t, pricing.CatalogLabor("plumber", 3), result.Details.Labor[0])
	})

	t.Run("reference with embedded cost is ambiguous", func(t *testing.T) {
		im := newTestImporter(t, Options{Strict: true})
		_, err := im.Import(base(
			[]any{map[string]any{"materialId": "concrete", "quantity": 1.0, "costPerUnit": 10.0}},
			[]any{map[string]any{"laborId": "mason", "hours": 1.0, "costPerHour": 99.0}},
		))
		require.Error(t, err)
		assert.Equal(t, []string{"materials[0]", "labor[0]"}, problemFields(t, err))
	})

	t.Run("negative quantity and hours", func(t *testing.T) {
		im := newTestImporter(t, Options{Strict: true})
		_, err := im.Import(base(
			[]any{map[string]any{"materialId": "concrete", "quantity": -1.0}},
			[]any{map[string]any{"laborId": "mason", "hours": -4.0}},
		))
		require.Error(t, err)
		assert.Equal(t, []string{"materials[0].quantity", "labor[0].hours"}, problemFields(t, err))
	})

	t.Run("missing quantity", func(t *testing.T) {
		im := newTestImporter(t, Options{Strict: true})
		_, err := im.Import(base([]any{map[string]any{"materialId": "concrete"}}, nil))
		require.Error(t, err)
		assert.Equal(t, []string{"materials[0].quantity"}, problemFields(t, err))
	})

	t.Run("duplicate ids are rejected", func(t *testing.T) {
		im := newTestImporter(t, Options{Strict: true})
		_, err := im.Import(base(
			[]any{
				map[string]any{"materialId": "concrete", "quantity": 1.0},
				map[string]any{"materialId": "concrete", "quantity": 2.0},
			},
			nil,
		))
		require.Error(t, err)
		assert.Equal(t, []string{"materials[1]"}, problemFields(t, err))
	})

	t.Run("zero quantity is accepted", func(t *testing.T) {
		im := newTestImporter(t, Options{Strict: true})
		result, err := im.Import(base([]any{map[string]any{"materialId": "steel", "quantity": 0.0}}, nil))
		require.NoError(t, err)
		assert.Equal(t, pricing.CatalogMaterial("steel", 0), result.Details.Materials[0])
	})
}

func TestImport_CustomItems(t *testing.T) {
	t.Run("complete records", func(t *testing.T) {
		im := newTestImporter(t, Options{Strict: true})
		result, err := im.Import(map[string]any{
			"projectName": "Deck", "length": 4.0, "width": 3.0, "height": 0.5,
			"materials": []any{map[string]any{
				"id": "decking", "name": "Hardwood decking", "unit": "m²",
				"costPerUnit": 60.0, "quantity": 12.0, "description": "ipe",
			}},
			"labor": []any{map[string]any{"role": "Carpenter", "costPerHour": 28.0, "hours": 20.0}},
		})
		require.NoError(t, err)

		assert.Equal(t, pricing.MaterialItem{
			Kind: pricing.KindCustom, ID: "decking", Name: "Hardwood decking", Unit: "m²",
			CostPerUnit: 60, Quantity: 12, Description: "ipe",
		}, result.Details.Materials[0])
		assert.Equal(t, pricing.LaborItem{
			Kind: pricing.KindCustom, ID: "gen-1", Role: "Carpenter", CostPerHour: 28, Hours: 20,
		}, result.Details.Labor[0])
		assert.Empty(t, result.Warnings)
	})

	t.Run("missing ids are synthesized uniquely", func(t *testing.T) {
		im := New(nil, Options{})
		result, err := im.Import(map[string]any{
			"projectName": "Fence", "length": 10.0, "width": 0.1, "height": 1.8,
			"materials": []any{
				map[string]any{"name": "Posts", "costPerUnit": 9.0, "quantity": 11.0},
				map[string]any{"name": "Rails", "costPerUnit": 4.0, "quantity": 20.0},
			},
		})
		require.NoError(t, err)
		require.Len(t, result.Details.Materials, 2)
		assert.NotEmpty(t, result.Details.Materials[0].ID)
		assert.NotEqual(t, result.Details.Materials[0].ID, result.Details.Materials[1].ID)
	})

	t.Run("missing cost defaults to zero with a warning", func(t *testing.T) {
		im := newTestImporter(t, Options{})
		result, err := im.Import(map[string]any{
			"projectName": "Path", "length": 8.0, "width": 1.0, "height": 0.1,
			"materials": []any{map[string]any{"name": "Pavers", "quantity": 80.0}},
			"labor":     []any{map[string]any{"role": "Helper", "hours": 6.0, "costPerHour": 0.0}},
		})
		require.NoError(t, err)
		assert.Equal(t, 0.0, result.Details.Materials[0].CostPerUnit)
		assert.Equal(t, []Warning{
			{Field: "materials[0].costPerUnit", Message: "missing, defaulted to 0"},
			{Field: "labor[0].costPerHour", Message: "is 0; the line adds nothing to the total"},
		}, result.Warnings)
	})

	t.Run("negative cost is rejected", func(t *testing.T) {
		im := newTestImporter(t, Options{})
		_, err := im.Import(map[string]any{
			"projectName": "Path", "length": 8.0, "width": 1.0, "height": 0.1,
			"materials": []any{map[string]any{"name": "Pavers", "quantity": 80.0, "costPerUnit": -2.0}},
			"labor":     []any{map[string]any{"role": "Helper", "hours": 6.0, "costPerHour": -1.0}},
		})
		require.Error(t, err)
		assert.Equal(t, []string{"materials[0].costPerUnit", "labor[0].costPerHour"}, problemFields(t, err))
	})

	t.Run("incomplete record is rejected", func(t *testing.T) {
		im := newTestImporter(t, Options{})
		_, err := im.Import(map[string]any{
			"projectName": "Path", "length": 8.0, "width": 1.0, "height": 0.1,
			"materials": []any{map[string]any{"costPerUnit": 3.0, "quantity": 1.0}},
			"labor":     []any{map[string]any{"hours": 6.0, "costPerHour": 20.0}},
		})
		require.Error(t, err)
		assert.Equal(t, []string{"materials[0].name", "labor[0].role"}, problemFields(t, err))
	})
}

func TestImport_ShapeErrors(t *testing.T) {
	im := newTestImporter(t, Options{})

	_, err := im.Import(map[string]any{
		"projectName": 42.0, "length": 1.0, "width": 1.0, "height": 1.0,
		"materials": "concrete",
		"labor":     []any{"mason"},
	})

	require.Error(t, err)
	assert.Equal(t, []string{"projectName", "materials", "labor[0]"}, problemFields(t, err))
}

func TestImport_NilCandidateIsParseFailure(t *testing.T) {
	im := newTestImporter(t, Options{})

	_, err := im.Import(nil)

	assert.True(t, errors.Is(err, ErrParse))
}

func TestImportedDetailsFeedTheEngine(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	im := New(c, Options{Strict: true})

	result, err := im.ImportText(`{"projectName": "Footing", "length": 2, "width": 2, "height": 0.5,
		"materials": [{"materialId": "concrete", "quantity": 10}],
		"labor": [{"laborId": "mason", "hours": 8}]}`)
	require.NoError(t, err)

	breakdown := pricing.Calculate(result.Details, c)
	assert.InDelta(t, 1207.5, breakdown.Total, 1e-9)
}
