package submission

import (
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/spmb/core"
)

var (
	statusTag  = "status"
	statusText = "must be one of: " + strings.Join(Statuses, ", ")

	phoneTag   = "phone"
	phoneText  = "invalid phone number"
	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 -]{6,18}[0-9]$`)

	regNumTag  = "regnum"
	regNumText = "invalid registration number"
)

// InitValidators registers the submission validations & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	_ = validate.RegisterValidation(phoneTag, phoneValidation)
	core.RegisterCustomTranslation(validate, translator, phoneTag, phoneText)

	_ = validate.RegisterValidation(regNumTag, regNumValidation)
	core.RegisterCustomTranslation(validate, translator, regNumTag, regNumText)

	validate.RegisterStructValidation(updateStructValidation, UpdateSubmission{})
}

func statusValidation(fl validator.FieldLevel) bool {
	return isValidStatus(fl.Field().String())
}

func phoneValidation(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}

func regNumValidation(fl validator.FieldLevel) bool {
	return IsRegistrationNumber(fl.Field().String())
}

// updateStructValidation requires at least one of status or notes.
func updateStructValidation(sl validator.StructLevel) {
	uu := sl.Current().Interface().(UpdateSubmission)
	if uu.IsEmpty() {
		sl.ReportError(uu.Status, "status", "Status", "required", "")
	}
}
