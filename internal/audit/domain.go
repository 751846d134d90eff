package audit

import "time"

// Resultado values stored with every log entry.
const (
	ResultSuccess = "SUCCESS"
	ResultDenied  = "DENIED"
	ResultError   = "ERROR"
)

// Entry is one append-only access log record. Entries are never updated
// or deleted by the application.
type Entry struct {
	UsuarioID string
	Accion    string
	Recurso   string
	RecursoID string
	Detalle   map[string]any
	Resultado string
	IP        string
	UserAgent string
	CreadoEn  time.Time
}

// FieldChange captures one audited field transition.
type FieldChange struct {
	Field string `json:"-"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// TimelineRow is a log entry shaped for the admin timeline view.
type TimelineRow struct {
	At        time.Time `json:"at"`
	Actor     string    `json:"actor"`
	Accion    string    `json:"accion"`
	Recurso   string    `json:"recurso"`
	RecursoID string    `json:"recurso_id"`
	Detalle   string    `json:"detalle,omitempty"`
	Resultado string    `json:"resultado"`
	IP        string    `json:"ip,omitempty"`
}

// TimelineFilters narrows the timeline query.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Accion   string
	Page     int
	PageSize int
}

// PagingInfo describes the window returned by Timeline.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}
