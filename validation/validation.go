package validation

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator"
	"github.com/meghashyamc/recordstore/logger"
	"github.com/meghashyamc/recordstore/services/index"
)

type Validator struct {
	validator                *validator.Validate
	logger                   logger.Logger
	builders                 index.Builders
	tagValidationDetailsOnce sync.Once
	tagValidationDetailsMap  map[string]tagValidationDetails
}

type tagValidationDetails struct {
	validatorFunc validator.Func
	err           error
}

// New returns a validator that accepts the builder names registered in
// builders. A nil table means index.DefaultBuilders.
func New(logger logger.Logger, builders index.Builders) (*Validator, error) {
	if builders == nil {
		builders = index.DefaultBuilders()
	}
	validator := &Validator{validator: validator.New(), logger: logger, builders: builders}
	validator.validator.RegisterTagNameFunc(useJSONFieldNames)
	if err := validator.registerCustomValidatorsForTags(); err != nil {
		return nil, err
	}

	return validator, nil
}

func (v *Validator) Validate(i any) error {

	if err := v.validator.Struct(i); err != nil {
		v.logger.Warn("validation failed", "err", err.Error())
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {

			tagValidationDetails, ok := v.getTagValidationDetails()[validationErrs[0].Tag()]
			if ok {
				return fmt.Errorf("%w: '%s'", tagValidationDetails.err, validationErrs[0].Field())
			}

			switch validationErrs[0].Tag() {
			case "required":
				return fmt.Errorf("missing required field '%s'", validationErrs[0].Field())

			case "min", "max":
				return fmt.Errorf("value or length of field '%s' is not in the expected range", validationErrs[0].Field())

			}
		}
		return err
	}
	return nil
}

// ValidateAll validates every element of items and stops at the first failure.
func ValidateAll[T any](v *Validator, items []T) error {
	for i := range items {
		if err := v.Validate(&items[i]); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

var (
	ErrInvalidBuilder = errors.New("unknown index builder")
	ErrInvalidSort    = errors.New("unknown sort comparator")
	ErrInvalidQuery   = errors.New("invalid query")
)

func (v *Validator) getTagValidationDetails() map[string]tagValidationDetails {
	v.tagValidationDetailsOnce.Do(func() {
		v.tagValidationDetailsMap = map[string]tagValidationDetails{
			"valid_builder": {validatorFunc: v.isValidBuilder, err: ErrInvalidBuilder},
			"valid_sort":    {validatorFunc: v.isValidSort, err: ErrInvalidSort},
			"valid_query":   {validatorFunc: v.isValidQuery, err: ErrInvalidQuery},
		}
	})
	return v.tagValidationDetailsMap
}

func (v *Validator) registerCustomValidatorsForTags() error {

	tagValidationDetailsMap := v.getTagValidationDetails()

	for tag, tagValidationDetails := range tagValidationDetailsMap {
		if err := v.validator.RegisterValidation(tag, tagValidationDetails.validatorFunc); err != nil {
			v.logger.Error("failed to register customer validator function", "err", err.Error())
			return err
		}
	}
	return nil
}

func useJSONFieldNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func (v *Validator) isValidBuilder(fl validator.FieldLevel) bool {
	builder := fl.Field().String()
	if !slices.Contains(v.builders.Names(), builder) {
		v.logger.Warn("index builder is not registered", "builder", builder)
		return false
	}

	return true
}

func (v *Validator) isValidSort(fl validator.FieldLevel) bool {
	sort := fl.Field().String()
	if _, err := index.ComparatorNamed(sort); err != nil {
		v.logger.Warn("sort comparator is not known", "sort", sort)
		return false
	}

	return true
}

func (v *Validator) isValidQuery(fl validator.FieldLevel) bool {
	query := fl.Field().String()
	if len(query) == 0 {
		return false
	}
	if strings.TrimSpace(query) == "" {
		v.logger.Warn("query is empty", "query", query)
		return false
	}

	return true
}
