package staff

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/andescare/clinica/internal/platform/httpx"
)

var validate = validator.New()

// validationError turns validator output into a single Spanish message
// listing the offending fields.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return httpx.Wrap(httpx.ErrValidation, "Datos inválidos")
	}
	issues := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, strings.ToLower(fe.Field()))
	}
	return httpx.Wrap(httpx.ErrValidation, "Datos inválidos: "+strings.Join(issues, ", "))
}

// splitName separates a full name into nombres and apellidos. The last
// token becomes the surname; everything before it, the given names.
func splitName(full string) (nombres, apellidos string) {
	tokens := strings.Fields(full)
	switch len(tokens) {
	case 0:
		return "", ""
	case 1:
		return tokens[0], ""
	default:
		return strings.Join(tokens[:len(tokens)-1], " "), tokens[len(tokens)-1]
	}
}

func (in *CreateInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.ToUpper(strings.TrimSpace(in.Role))
	in.RutBody = strings.TrimSpace(in.RutBody)
	in.RutDV = strings.ToUpper(strings.TrimSpace(in.RutDV))
	in.Address = strings.TrimSpace(in.Address)
}

func (in *UpdateInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.ToUpper(strings.TrimSpace(in.Role))
	in.RutBody = strings.TrimSpace(in.RutBody)
	in.RutDV = strings.ToUpper(strings.TrimSpace(in.RutDV))
	in.Address = strings.TrimSpace(in.Address)
}
