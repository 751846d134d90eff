package audit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffDetectsChangedFields(t *testing.T) {
	old := Snapshot{"Nombre": "Ana Soto", "Email": "ana@clinica.cl", "Rol": "RECEPCIONISTA", "Estado": "Activo"}
	new := Snapshot{"Nombre": "Ana Soto Pérez", "Email": "ana@clinica.cl", "Rol": "RECEPCIONISTA", "Estado": "Activo"}

	changes := Diff(old, new, []string{"Nombre", "Email", "Rol", "Estado"})
	require.Len(t, changes, 1)
	assert.Equal(t, "Nombre", changes[0].Field)
	assert.Equal(t, "Ana Soto", changes[0].Old)
	assert.Equal(t, "Ana Soto Pérez", changes[0].New)
}

func TestDiffPreservesFieldOrder(t *testing.T) {
	old := Snapshot{"Nombre": "a", "Email": "b", "Rol": "c"}
	new := Snapshot{"Nombre": "x", "Email": "y", "Rol": "z"}

	changes := Diff(old, new, []string{"Rol", "Nombre", "Email"})
	require.Len(t, changes, 3)
	for i, want := range []string{"Rol", "Nombre", "Email"} {
		assert.Equal(t, want, changes[i].Field, "position %d", i)
	}
}

func TestDiffNoChanges(t *testing.T) {
	snap := Snapshot{"Nombre": "Ana", "Email": "ana@clinica.cl"}
	assert.Nil(t, Diff(snap, snap, []string{"Nombre", "Email"}))
}

func TestDiffSkipsUndeclaredFields(t *testing.T) {
	old := Snapshot{"Nombre": "a", "Interno": "1"}
	new := Snapshot{"Nombre": "a", "Interno": "2"}
	assert.Nil(t, Diff(old, new, []string{"Nombre"}), "undeclared field must not be audited")
}

func TestDetailJSONShape(t *testing.T) {
	changes := []FieldChange{{Field: "Nombre", Old: "Ana", New: "Ana Soto"}}
	raw := DetailJSON(changes)

	var decoded map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	require.Len(t, decoded, 1)
	require.Contains(t, decoded, "Nombre")
	assert.Equal(t, "Ana", decoded["Nombre"]["old"])
	assert.Equal(t, "Ana Soto", decoded["Nombre"]["new"])
}

func TestDetailJSONEmpty(t *testing.T) {
	assert.Empty(t, DetailJSON(nil))
}
