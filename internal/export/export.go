// Package export renders a cost breakdown as plain text or as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/costestimator/internal/pricing"
)

// Report is everything needed to render one estimate.
type Report struct {
	Details      pricing.ProjectDetails
	Breakdown    pricing.Breakdown
	OverheadRate float64
}

type line struct {
	label    string
	amount   float64
	unit     string
	rate     float64
	subtotal float64
}

// materialLines lists costed materials in the order their ids first appear in the project.
func (r Report) materialLines() []line {
	seen := make(map[string]bool, len(r.Details.Materials))
	lines := make([]line, 0, len(r.Breakdown.Materials))
	for _, m := range r.Details.Materials {
		cost, ok := r.Breakdown.Materials[m.ID]
		if !ok || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		lines = append(lines, line{label: cost.Name, amount: cost.Quantity, unit: cost.Unit, rate: cost.UnitCost, subtotal: cost.TotalCost})
	}
	return lines
}

func (r Report) laborLines() []line {
	seen := make(map[string]bool, len(r.Details.Labor))
	lines := make([]line, 0, len(r.Breakdown.Labor))
	for _, l := range r.Details.Labor {
		cost, ok := r.Breakdown.Labor[l.ID]
		if !ok || seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		lines = append(lines, line{label: cost.Role, amount: cost.Hours, unit: "h", rate: cost.HourlyRate, subtotal: cost.TotalCost})
	}
	return lines
}

// Money formats v with two decimals and a leading dollar sign.
func Money(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

// Quantity formats v without trailing zeros.
func Quantity(v float64) string {
	return decimal.NewFromFloat(v).String()
}

// Percent formats a rate such as 0.15 as "15%".
func Percent(rate float64) string {
	return decimal.NewFromFloat(rate).Shift(2).String() + "%"
}

// Text writes a human readable breakdown to w.
func Text(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Project:\t%s\n", r.Details.ProjectName)
	fmt.Fprintf(tw, "Dimensions:\t%s x %s x %s m\n",
		Quantity(r.Details.Length), Quantity(r.Details.Width), Quantity(r.Details.Height))

	fmt.Fprint(tw, "\nMaterials\n")
	materials := r.materialLines()
	if len(materials) == 0 {
		fmt.Fprint(tw, "  (none)\n")
	}
	for _, l := range materials {
		fmt.Fprintf(tw, "  %s\t%s %s\tx %s\t= %s\n", l.label, Quantity(l.amount), l.unit, Money(l.rate), Money(l.subtotal))
	}

	fmt.Fprint(tw, "\nLabor\n")
	labor := r.laborLines()
	if len(labor) == 0 {
		fmt.Fprint(tw, "  (none)\n")
	}
	for _, l := range labor {
		fmt.Fprintf(tw, "  %s\t%s h\tx %s/h\t= %s\n", l.label, Quantity(l.amount), Money(l.rate), Money(l.subtotal))
	}

	fmt.Fprint(tw, "\n")
	fmt.Fprintf(tw, "Total Materials Cost:\t%s\n", Money(r.Breakdown.TotalMaterialCost))
	fmt.Fprintf(tw, "Total Labor Cost:\t%s\n", Money(r.Breakdown.TotalLaborCost))
	fmt.Fprintf(tw, "Overhead (%s):\t%s\n", Percent(r.OverheadRate), Money(r.Breakdown.Overhead))
	fmt.Fprintf(tw, "Total Project Cost:\t%s\n", Money(r.Breakdown.Total))

	if len(r.Breakdown.Unresolved) > 0 {
		fmt.Fprint(tw, "\nLeft out (unknown catalog ids):\n")
		for _, id := range r.Breakdown.Unresolved {
			fmt.Fprintf(tw, "  %s\n", id)
		}
	}

	return tw.Flush()
}
