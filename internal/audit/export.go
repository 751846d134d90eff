package audit

import (
	"encoding/csv"
	"io"
	"time"
)

var exportHeader = []string{"fecha", "actor", "accion", "recurso", "recurso_id", "resultado", "ip", "detalle"}

// WriteCSV streams timeline rows as CSV.
func WriteCSV(w io.Writer, rows []TimelineRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.At.Format(time.RFC3339),
			row.Actor,
			row.Accion,
			row.Recurso,
			row.RecursoID,
			row.Resultado,
			row.IP,
			row.Detalle,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
