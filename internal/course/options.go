package course

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"coursegen/internal/language"
	"coursegen/internal/services"
)

// Quality selects output fidelity and, indirectly, the synthesis backend.
type Quality string

const (
	QualityDraft    Quality = "draft"
	QualityStandard Quality = "standard"
	QualityHigh     Quality = "high"
)

// ParseQuality converts a string to a Quality.
func ParseQuality(value string) (Quality, bool) {
	switch Quality(strings.ToLower(strings.TrimSpace(value))) {
	case QualityDraft:
		return QualityDraft, true
	case QualityStandard:
		return QualityStandard, true
	case QualityHigh:
		return QualityHigh, true
	default:
		return "", false
	}
}

// ProcessingOptions are supplied by the caller and fixed for the lifetime of a job.
type ProcessingOptions struct {
	Voice           string   `json:"voice,omitempty" validate:"omitempty,max=64,printascii"`
	BackgroundMusic bool     `json:"backgroundMusic"`
	Languages       []string `json:"languages" validate:"min=1,max=8,dive,bcp47_language_tag"`
	Quality         Quality  `json:"quality" validate:"required,oneof=draft standard high"`
}

// DefaultOptions returns standard quality narration in English without music.
func DefaultOptions() ProcessingOptions {
	return ProcessingOptions{
		Languages: []string{language.Default},
		Quality:   QualityStandard,
	}
}

// PrimaryLanguage returns the first requested language.
func (o ProcessingOptions) PrimaryLanguage() string {
	if len(o.Languages) == 0 {
		return language.Default
	}
	return o.Languages[0]
}

// Resolve fills zero fields of overrides from defaults and canonicalises
// language tags. A nil override returns the defaults.
func Resolve(defaults ProcessingOptions, overrides *ProcessingOptions) ProcessingOptions {
	resolved := defaults
	if overrides != nil {
		resolved = *overrides
		if resolved.Quality == "" {
			resolved.Quality = defaults.Quality
		}
		if len(resolved.Languages) == 0 {
			resolved.Languages = defaults.Languages
		}
		if strings.TrimSpace(resolved.Voice) == "" {
			resolved.Voice = defaults.Voice
		}
	}
	resolved.Voice = strings.TrimSpace(resolved.Voice)
	if q, ok := ParseQuality(string(resolved.Quality)); ok {
		resolved.Quality = q
	}
	languages := make([]string, 0, len(resolved.Languages))
	seen := make(map[string]struct{}, len(resolved.Languages))
	for _, code := range resolved.Languages {
		value, ok := language.Normalize(code)
		if !ok {
			// Left as written so Validate reports it.
			value = strings.TrimSpace(code)
		}
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		languages = append(languages, value)
	}
	if len(languages) == 0 {
		languages = []string{language.Default}
	}
	resolved.Languages = languages
	return resolved
}

// FieldError describes one invalid option.
type FieldError struct {
	Field   string
	Message string
}

// OptionsError aggregates validation failures for ProcessingOptions.
type OptionsError struct {
	Fields []FieldError
}

func (e *OptionsError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Message)
	}
	return "invalid processing options: " + strings.Join(parts, "; ")
}

func (e *OptionsError) Unwrap() error { return services.ErrValidation }

var (
	validatorOnce sync.Once
	validate      *validator.Validate
	translator    ut.Translator
)

func optionsValidator() (*validator.Validate, ut.Translator) {
	validatorOnce.Do(func() {
		locale := en.New()
		uni := ut.New(locale, locale)
		translator, _ = uni.GetTranslator("en")
		validate = validator.New(validator.WithRequiredStructEnabled())
		if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
			panic(fmt.Sprintf("register validator translations: %v", err))
		}
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate, translator
}

// Validate checks options against their declared constraints.
func (o ProcessingOptions) Validate() error {
	v, trans := optionsValidator()
	err := v.Struct(o)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return services.Wrap(services.ErrValidation, "options", "validate", "", err)
	}
	out := &OptionsError{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Namespace(), Message: fe.Translate(trans)})
	}
	return out
}
