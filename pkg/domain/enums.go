package domain

// Closed enumerations for the six required profile fields. Values are the
// canonical slugs stored in the remote database.
var (
	BusinessTypes = []string{
		"producto-fisico", "servicio-digital", "ecommerce", "saas",
		"consultoria", "manufactura", "retail",
	}
	RevenueModels = []string{
		"b2b", "b2c", "b2b2c", "suscripcion", "marketplace", "freemium",
		"publicidad",
	}
	BusinessStages = []string{
		"idea", "startup-temprano", "crecimiento", "establecido", "expansion",
	}
	MainObjectives = []string{
		"aumentar-ventas", "reducir-costos", "expandir-mercado",
		"mejorar-eficiencia", "digitalizar-procesos", "fidelizar-clientes",
		"innovar-productos",
	}
	DigitalizationLevels = []string{
		"bajo", "medio-herramientas", "alto-integrado", "avanzado-automatizado",
	}
	EmployeeCounts = []string{
		"solo-fundador", "2-5", "6-20", "21-50", "51-200", "mas-200",
	}
)

// RequiredProfileFields maps each required field name (app shape) to its
// enumeration, in a stable order for error messages.
var RequiredProfileFields = []struct {
	Name   string
	Values []string
}{
	{"businessType", BusinessTypes},
	{"revenueModel", RevenueModels},
	{"businessStage", BusinessStages},
	{"mainObjective", MainObjectives},
	{"digitalizationLevel", DigitalizationLevels},
	{"employeeCount", EmployeeCounts},
}

// ValidEnumValue reports whether value belongs to the enumeration of the
// named required field. Unknown field names are never valid.
func ValidEnumValue(field, value string) bool {
	for _, f := range RequiredProfileFields {
		if f.Name != field {
			continue
		}
		for _, v := range f.Values {
			if v == value {
				return true
			}
		}
		return false
	}
	return false
}
