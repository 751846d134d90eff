package personas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	cases := map[string]string{
		"Muñoz":           "munoz",
		"José Pérez":      "jose perez",
		"NÚÑEZ":           "nunez",
		"sin acentos":     "sin acentos",
		"María Ñirihuala": "maria nirihuala",
		"":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Fold(in), "fold %q", in)
	}
}

func TestNombreCompleto(t *testing.T) {
	assert.Equal(t, "Ana Soto", Persona{Nombres: "Ana", Apellidos: "Soto"}.NombreCompleto())
	assert.Equal(t, "Ana", Persona{Nombres: "Ana"}.NombreCompleto())
}
