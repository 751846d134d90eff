package rbac

// AccionVer is the only action the permission matrix manages today.
const AccionVer = "Ver"

// actionCatalog maps the matrix's human-readable action labels to the
// canonical resource each one gates.
var actionCatalog = map[string]string{
	"Ver Agendamiento":     "Agendamiento",
	"Ver Pacientes":        "Pacientes",
	"Ver Reportes BI":      "Reportes BI",
	"Ver Asistente":        "Asistente Clínico",
	"Ver HL7":              "Estándar HL7",
	"Configuración Global": "Configuración Global",
	"Ver Usuarios":         "Seguridad (RBAC)",
}

// ResolveAction returns the (recurso, accion) pair for an action label.
// Unknown labels fall back to the General resource, matching the matrix UI.
func ResolveAction(label string) (recurso, accion string) {
	if r, ok := actionCatalog[label]; ok {
		return r, AccionVer
	}
	return "General", AccionVer
}

// defaultGrant describes the out-of-the-box template for one role.
type defaultGrant struct {
	role    string
	actions []string
}

// defaultGrants is the hard-coded permission baseline seedable by an admin.
var defaultGrants = []defaultGrant{
	{role: "KINESIOLOGO", actions: []string{"Ver Agendamiento", "Ver Pacientes", "Ver HL7"}},
	{role: "RECEPCIONISTA", actions: []string{"Ver Agendamiento", "Ver Pacientes"}},
	{role: "MEDICO", actions: []string{"Ver Agendamiento", "Ver Pacientes", "Ver Reportes BI"}},
}
