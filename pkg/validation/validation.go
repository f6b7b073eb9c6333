package validation

import (
	"sync"

	"github.com/go-playground/mold/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	conform     *mold.Transformer
	conformOnce sync.Once
)

func Validate() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	return validate
}

// Conform returns the shared modifier set used to normalise request input
// (trim, lcase, ...) before it is validated.
func Conform() *mold.Transformer {
	conformOnce.Do(func() {
		conform = modifiers.New()
	})

	return conform
}
