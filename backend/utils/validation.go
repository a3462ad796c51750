package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseAndValidate decodes the JSON body into out and checks its validate
// tags. The returned error is safe to show to the client.
func ParseAndValidate(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return errors.New("Cuerpo de la solicitud inválido")
	}
	return Validate(out)
}

// Validate checks the validate tags of a decoded request.
func Validate(out interface{}) error {
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("Campos inválidos: %s", strings.Join(fields, ", "))
		}
		return errors.New("Cuerpo de la solicitud inválido")
	}
	return nil
}

// IsEmail applies the same rule as the `email` struct tag.
func IsEmail(value string) bool {
	return validate.Var(value, "required,email") == nil
}
