package generate

import (
	"fmt"
	"strings"

	"github.com/Simplici0/costestimator/internal/catalog"
)

// CatalogLister exposes the catalog entries a prompt advertises.
type CatalogLister interface {
	Materials() []catalog.Material
	Labor() []catalog.Labor
}

const responseShape = `{
  "projectName": "string",
  "length": number,
  "width": number,
  "height": number,
  "materials": [{ "materialId": "string", "quantity": number }],
  "labor": [{ "laborId": "string", "hours": number }]
}`

// BuildPrompt asks for an estimate of description using the catalog ids in c.
func BuildPrompt(c CatalogLister, description string) string {
	var b strings.Builder

	b.WriteString("As a construction cost estimation expert, analyze this project description and provide estimates.\n\n")

	b.WriteString("Available materials (id: name, unit):\n")
	for _, m := range c.Materials() {
		fmt.Fprintf(&b, "- %s: %s, %s\n", m.ID, m.Name, m.Unit)
	}
	b.WriteString("\nAvailable labor roles (id: role):\n")
	for _, l := range c.Labor() {
		fmt.Fprintf(&b, "- %s: %s\n", l.ID, l.Role)
	}

	b.WriteString("\nProject description:\n")
	b.WriteString(strings.TrimSpace(description))
	b.WriteString("\n\nRespond with JSON in exactly this format. Dimensions are in meters.\n")
	b.WriteString(responseShape)
	b.WriteString("\n\nUse only the ids listed above for materialId and laborId. ")
	b.WriteString(`If something is not in the list, add it as {"name", "unit", "costPerUnit", "quantity"} for materials `)
	b.WriteString(`or {"role", "costPerHour", "hours"} for labor, without materialId or laborId.`)
	b.WriteString("\n")

	return b.String()
}
