package registration

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/harmony/core"
)

var (
	instrumentTag  = "instrument"
	instrumentText = "please select an instrument we teach"

	experienceTag  = "experience"
	experienceText = "please select an experience level"
)

// InitValidators registers the registration validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(instrumentTag, optionValidation(Instruments))
	core.RegisterCustomTranslation(validate, translator, instrumentTag, instrumentText)

	_ = validate.RegisterValidation(experienceTag, optionValidation(ExperienceLevels))
	core.RegisterCustomTranslation(validate, translator, experienceTag, experienceText)
}

// optionValidation checks that the field value is one of opts.
func optionValidation(opts []Option) validator.Func {
	return func(fl validator.FieldLevel) bool {
		val := fl.Field().String()
		for _, opt := range opts {
			if opt.Value == val {
				return true
			}
		}
		return false
	}
}
