package validation

import (
	stderrors "errors"
	"fmt"
	"net/url"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/errors"
)

// Validator checks form input before it is sent to the backend. Struct rules
// come from `validate` tags; messages use the `label` tag of each field.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a Validator with the cnpj and certfile rules
// registered.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if label := fld.Tag.Get("label"); label != "" {
			return label
		}
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// registration only fails for empty tags or nil funcs
	_ = v.RegisterValidation("cnpj", func(fl validator.FieldLevel) bool {
		return len(Digits(fl.Field().String())) == 14
	})
	_ = v.RegisterValidation("certfile", func(fl validator.FieldLevel) bool {
		return IsCertificateFile(fl.Field().String())
	})
	return &Validator{v: v}
}

// Struct validates s and returns a VALIDATION_ERROR whose details list every
// failing field in Portuguese.
func (v *Validator) Struct(s interface{}) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !stderrors.As(err, &ve) {
		return errors.Wrap(err, errors.ErrValidation, "invalid input")
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	details := strings.Join(msgs, "; ")
	return errors.New(errors.ErrValidation, details).WithDetails(details)
}

func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_with":
		return field + " é obrigatório"
	case "email":
		return field + " deve ser um e-mail válido"
	case "gt":
		return fmt.Sprintf("%s deve ser maior que %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s deve ter %s caracteres", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s deve ser um de: %s", field, fe.Param())
	case "cnpj":
		return field + " deve conter 14 números"
	case "certfile":
		return field + " deve ser um certificado .pfx ou .p12"
	default:
		return fmt.Sprintf("%s é inválido (%s)", field, fe.Tag())
	}
}

// Digits strips every non-digit character.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateCNPJ strips formatting and requires exactly 14 digits. It returns
// the bare digits.
func (v *Validator) ValidateCNPJ(cnpj string) (string, error) {
	digits := Digits(cnpj)
	if len(digits) != 14 {
		return "", errors.New(errors.ErrValidation, "invalid cnpj").
			WithDetails("Digite um CNPJ válido com 14 números.")
	}
	return digits, nil
}

// IsCertificateFile reports whether name has a .pfx or .p12 extension,
// ignoring case.
func IsCertificateFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".pfx" || ext == ".p12"
}

// ValidateCertificateFile rejects anything that is not a .pfx or .p12 file.
func (v *Validator) ValidateCertificateFile(name string) error {
	if !IsCertificateFile(name) {
		return errors.New(errors.ErrValidation, "invalid certificate file").
			WithDetails("Selecione um arquivo de certificado digital válido (.pfx ou .p12).")
	}
	return nil
}

// ValidateURL checks that target is an absolute URL with one of the allowed
// schemes.
func (v *Validator) ValidateURL(target string, allowedSchemes []string) error {
	if target == "" {
		return fmt.Errorf("url is required")
	}

	if strings.ContainsAny(target, " \t\n\r") {
		return fmt.Errorf("url contains invalid whitespace characters")
	}

	parsedURL, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if len(allowedSchemes) > 0 {
		schemeValid := false
		for _, scheme := range allowedSchemes {
			if parsedURL.Scheme == scheme {
				schemeValid = true
				break
			}
		}
		if !schemeValid {
			return fmt.Errorf("URL must use one of allowed schemes %v, got: %s", allowedSchemes, parsedURL.Scheme)
		}
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("URL must have a valid host")
	}

	return nil
}

// ValidateEnum checks value against allowedValues.
func (v *Validator) ValidateEnum(value string, allowedValues []string, fieldName string) error {
	if value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	for _, allowed := range allowedValues {
		if value == allowed {
			return nil
		}
	}

	return fmt.Errorf("invalid %s: %s, allowed values: %v", fieldName, value, allowedValues)
}

// ValidateMonth accepts "" (any month) or 01..12.
func (v *Validator) ValidateMonth(month string) error {
	if month == "" {
		return nil
	}
	if len(month) != 2 || month < "01" || month > "12" {
		return errors.New(errors.ErrValidation, "invalid month").
			WithDetails("Mês deve estar entre 01 e 12.")
	}
	return nil
}

// ValidateYear accepts a four digit year.
func (v *Validator) ValidateYear(year string) error {
	if len(year) != 4 || Digits(year) != year {
		return errors.New(errors.ErrValidation, "invalid year").
			WithDetails("Ano deve ter 4 dígitos.")
	}
	return nil
}
