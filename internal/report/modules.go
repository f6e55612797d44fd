// Package report generates, persists, and queries the user's consultancy
// reports. Reports are immutable once written and always scoped to their
// owner.
package report

// Module is one consultancy area a report can be generated for.
type Module struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Modules is the fixed registry of consultancy areas, in display order.
var Modules = []Module{
	{ID: "estrategia-digital", Name: "Estrategia Digital", Icon: "compass"},
	{ID: "marketing-ventas", Name: "Marketing y Ventas", Icon: "megaphone"},
	{ID: "operaciones-procesos", Name: "Operaciones y Procesos", Icon: "settings"},
	{ID: "finanzas-metricas", Name: "Finanzas y Métricas", Icon: "bar-chart"},
	{ID: "talento-equipo", Name: "Talento y Equipo", Icon: "users"},
	{ID: "tecnologia-automatizacion", Name: "Tecnología y Automatización", Icon: "cpu"},
	{ID: "experiencia-cliente", Name: "Experiencia del Cliente", Icon: "heart"},
	{ID: "innovacion-producto", Name: "Innovación y Producto", Icon: "lightbulb"},
}

const unknownModuleName = "Módulo desconocido"

// ModuleByID looks up a module in the registry.
func ModuleByID(id string) (Module, bool) {
	for _, m := range Modules {
		if m.ID == id {
			return m, true
		}
	}
	return Module{}, false
}

// ModuleName resolves the display name for a module id, falling back to a
// placeholder for ids no longer in the registry.
func ModuleName(id string) string {
	if m, ok := ModuleByID(id); ok {
		return m.Name
	}
	return unknownModuleName
}
