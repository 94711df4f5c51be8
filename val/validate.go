package val

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorInstance *validator.Validate
	validatorOnce     sync.Once
)

// getValidator returns a singleton go-playground/validator instance, JSON
// tag-aware and extended with the iso8601 tag.
func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInstance = validator.New()
		validatorInstance.RegisterTagNameFunc(GetFieldName)
		_ = validatorInstance.RegisterValidation("iso8601", func(fl validator.FieldLevel) bool {
			return IsValidISO8601(fl.Field().String())
		})
	})

	return validatorInstance
}

// ValidateStruct runs go-playground/validator's `validate:"..."` tags on v,
// then this package's own declarative tags (format, minLength, maxLength,
// pattern, minimum, maximum, multipleOf, enum) used by the processor's body
// and query schemas. Returns nil if v has no validation errors.
func ValidateStruct(v any) *ValidationError {
	out := NewValidationError()

	if err := getValidator().Struct(v); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			mapValidationErrors(validationErrs, out)
		}
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}

	if rv.Kind() == reflect.Struct {
		validateCustomTags(rv, rv.Type(), out)
	}

	if !out.HasErrors() {
		return nil
	}

	return out
}

func mapValidationErrors(validationErrs validator.ValidationErrors, out *ValidationError) {
	for _, fieldErr := range validationErrs {
		out.AddWithCode(fieldErr.Field(), formatValidationMessage(fieldErr), errorCodeFor(fieldErr), fieldErr.Value())
	}
}

func formatValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "field is required"
	case "email":
		return "must be a valid email address"
	case "url", "uri":
		return "must be a valid URL"
	case "uuid", "uuid4", "uuid5":
		return "must be a valid UUID"
	case "min":
		if err.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", err.Param())
		}

		return "must be at least " + err.Param()
	case "max":
		if err.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", err.Param())
		}

		return "must be at most " + err.Param()
	case "gte":
		return "must be at least " + err.Param()
	case "lte":
		return "must be at most " + err.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(err.Param(), " ", ", ")
	case "iso8601":
		return "must be a valid ISO 8601 date-time"
	case "datetime":
		return "must be a valid datetime in format " + err.Param()
	default:
		return fmt.Sprintf("validation failed on '%s'", err.Tag())
	}
}

func errorCodeFor(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return ErrCodeRequired
	case "min":
		if err.Kind() == reflect.String {
			return ErrCodeMinLength
		}

		return ErrCodeMinValue
	case "max":
		if err.Kind() == reflect.String {
			return ErrCodeMaxLength
		}

		return ErrCodeMaxValue
	case "gte":
		return ErrCodeMinValue
	case "lte":
		return ErrCodeMaxValue
	case "email", "url", "uri", "uuid", "uuid4", "uuid5", "iso8601", "datetime":
		return ErrCodeInvalidFormat
	case "oneof":
		return ErrCodeEnum
	default:
		return ErrCodeInvalidType
	}
}

// validateCustomTags walks rt's exported fields, descending into anonymous
// (embedded) structs that carry no explicit binding tag of their own.
func validateCustomTags(rv reflect.Value, rt reflect.Type, out *ValidationError) {
	for i := range rt.NumField() {
		field := rt.Field(i)
		fieldValue := rv.Field(i)

		if !field.IsExported() {
			continue
		}

		if field.Anonymous {
			hasExplicitTag := field.Tag.Get("path") != "" || field.Tag.Get("query") != "" ||
				field.Tag.Get("header") != "" || field.Tag.Get("json") != ""

			if !hasExplicitTag {
				embeddedType := field.Type
				embeddedValue := fieldValue

				if embeddedType.Kind() == reflect.Ptr {
					if embeddedValue.IsNil() {
						continue
					}

					embeddedType = embeddedType.Elem()
					embeddedValue = embeddedValue.Elem()
				}

				if embeddedType.Kind() == reflect.Struct {
					validateCustomTags(embeddedValue, embeddedType, out)

					continue
				}
			}
		}

		hasCustomTags := field.Tag.Get("format") != "" || field.Tag.Get("minLength") != "" ||
			field.Tag.Get("maxLength") != "" || field.Tag.Get("pattern") != "" ||
			field.Tag.Get("minimum") != "" || field.Tag.Get("maximum") != "" ||
			field.Tag.Get("multipleOf") != "" || field.Tag.Get("enum") != ""

		isParamField := IsParameterField(field)
		fieldRequired := IsFieldRequired(field)

		if !hasCustomTags && !fieldRequired {
			continue
		}

		fieldName := GetFieldName(field)

		if fieldValue.Kind() == reflect.Ptr {
			if fieldValue.IsNil() {
				if fieldRequired && isParamField {
					out.AddWithCode(fieldName, "field is required", ErrCodeRequired, nil)
				}

				continue
			}

			fieldValue = fieldValue.Elem()
		}

		if fieldRequired && fieldValue.Kind() == reflect.String && fieldValue.String() == "" {
			out.AddWithCode(fieldName, "field is required", ErrCodeRequired, "")

			continue
		}

		validateFieldCustomTags(field, fieldValue, fieldName, out)
	}
}

func validateFieldCustomTags(field reflect.StructField, fieldValue reflect.Value, fieldName string, out *ValidationError) {
	isOptional := !IsFieldRequired(field)
	isEmpty := IsZeroValue(fieldValue)

	if fieldValue.Kind() == reflect.String {
		value := fieldValue.String()

		if minLengthTag := field.Tag.Get("minLength"); minLengthTag != "" {
			var minLen int
			if _, err := fmt.Sscanf(minLengthTag, "%d", &minLen); err == nil && (!isOptional || !isEmpty) {
				if len(value) < minLen {
					out.AddWithCode(fieldName, fmt.Sprintf("must be at least %d characters", minLen), ErrCodeMinLength, value)
				}
			}
		}

		if maxLengthTag := field.Tag.Get("maxLength"); maxLengthTag != "" {
			var maxLen int
			if _, err := fmt.Sscanf(maxLengthTag, "%d", &maxLen); err == nil {
				if len(value) > maxLen {
					out.AddWithCode(fieldName, fmt.Sprintf("must be at most %d characters", maxLen), ErrCodeMaxLength, value)
				}
			}
		}

		if pattern := field.Tag.Get("pattern"); pattern != "" && (!isOptional || !isEmpty) {
			if matched, _ := regexp.MatchString(pattern, value); !matched {
				out.AddWithCode(fieldName, "does not match required pattern", ErrCodePattern, value)
			}
		}

		if format := field.Tag.Get("format"); format != "" && (!isOptional || !isEmpty) {
			validateFormat(format, value, fieldName, out)
		}
	}

	if IsNumericKind(fieldValue.Kind()) {
		var numValue float64

		switch fieldValue.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			numValue = float64(fieldValue.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			numValue = float64(fieldValue.Uint())
		case reflect.Float32, reflect.Float64:
			numValue = fieldValue.Float()
		}

		isZero := numValue == 0

		if minTag := field.Tag.Get("minimum"); minTag != "" {
			var minValue float64
			if _, err := fmt.Sscanf(minTag, "%f", &minValue); err == nil {
				if (!isOptional || !isZero || minValue == 0) && numValue < minValue {
					out.AddWithCode(fieldName, fmt.Sprintf("must be at least %v", minValue), ErrCodeMinValue, numValue)
				}
			}
		}

		if maxTag := field.Tag.Get("maximum"); maxTag != "" {
			var maxValue float64
			if _, err := fmt.Sscanf(maxTag, "%f", &maxValue); err == nil && numValue > maxValue {
				out.AddWithCode(fieldName, fmt.Sprintf("must be at most %v", maxValue), ErrCodeMaxValue, numValue)
			}
		}

		if multipleOfTag := field.Tag.Get("multipleOf"); multipleOfTag != "" && (!isOptional || !isZero) {
			var multipleOf float64
			if _, err := fmt.Sscanf(multipleOfTag, "%f", &multipleOf); err == nil && multipleOf != 0 {
				if int(numValue)%int(multipleOf) != 0 {
					out.AddWithCode(fieldName, fmt.Sprintf("must be a multiple of %v", multipleOf), ErrCodeInvalidType, numValue)
				}
			}
		}
	}

	if enumTag := field.Tag.Get("enum"); enumTag != "" && (!isOptional || !isEmpty) {
		validateEnumTag(fieldValue, fieldName, enumTag, out)
	}
}

func validateEnumTag(fieldValue reflect.Value, fieldName, enumTag string, out *ValidationError) {
	enumValues := strings.Split(enumTag, ",")
	for i, v := range enumValues {
		enumValues[i] = strings.TrimSpace(v)
	}

	var strValue string

	switch fieldValue.Kind() {
	case reflect.String:
		strValue = fieldValue.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		strValue = strconv.FormatInt(fieldValue.Int(), 10)
	default:
		strValue = fmt.Sprintf("%v", fieldValue.Interface())
	}

	if !slices.Contains(enumValues, strValue) {
		out.AddWithCode(fieldName, "must be one of: "+strings.Join(enumValues, ", "), ErrCodeEnum, strValue)
	}
}

func validateFormat(format, value, fieldName string, out *ValidationError) {
	switch format {
	case "email":
		if !IsValidEmail(value) {
			out.AddWithCode(fieldName, "must be a valid email address", ErrCodeInvalidFormat, value)
		}
	case "uuid":
		if !IsValidUUID(value) {
			out.AddWithCode(fieldName, "must be a valid UUID", ErrCodeInvalidFormat, value)
		}
	case "uri", "url":
		if !IsValidURL(value) {
			out.AddWithCode(fieldName, "must be a valid URL", ErrCodeInvalidFormat, value)
		}
	case "date":
		if matched, _ := regexp.MatchString(`^\d{4}-\d{2}-\d{2}$`, value); !matched {
			out.AddWithCode(fieldName, "must be a valid date (YYYY-MM-DD)", ErrCodeInvalidFormat, value)
		}
	case "date-time":
		if !IsValidISO8601(value) {
			out.AddWithCode(fieldName, "must be a valid ISO 8601 date-time", ErrCodeInvalidFormat, value)
		}
	}
}
