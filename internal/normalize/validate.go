package normalize

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"studycal/internal/model"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			_, err := parseClock(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// validateRecord checks the required time fields of a record and turns
// validator errors into one short reason string.
func validateRecord(rec model.Record) error {
	err := recordValidator().Struct(rec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	reasons := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		reasons = append(reasons, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(reasons, "; "))
}
