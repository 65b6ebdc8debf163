// Package validation turns raw JSON payloads into validated DTOs.
//
// A payload is first decoded into a generic map, then weakly decoded into the DTO so that
// numeric strings such as "2" are accepted for numeric fields. Fields missing from the payload
// keep the value the DTO already holds, which is how defaults are applied.
package validation

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"

	perrors "github.com/abgdnv/productcatalog/internal/product/errors"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

const invalidPayload = "Invalid payload"

var errNotInteger = errors.New("expected an integer")

// Validator decodes and validates payloads. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator reporting fields by their JSON names.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Decode fills out from the JSON object in raw and validates it.
// Keys listed in required must be present in the payload. An empty payload counts as an empty object.
func (v *Validator) Decode(raw []byte, out any, required ...string) error {
	return v.decode(raw, out, nil, required)
}

// DecodeExcept is Decode with the ignored keys dropped from the payload, so out keeps the values it
// already holds for them.
func (v *Validator) DecodeExcept(raw []byte, out any, ignored []string, required ...string) error {
	return v.decode(raw, out, ignored, required)
}

func (v *Validator) decode(raw []byte, out any, ignored, required []string) error {
	input := map[string]any{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &input); err != nil {
			return perrors.Validation(invalidPayload+": expected a JSON object", nil)
		}
	}
	for _, key := range ignored {
		delete(input, key)
	}

	missing := map[string]string{}
	for _, key := range required {
		if value, ok := input[key]; !ok || value == nil {
			missing[key] = "required"
		}
	}
	if len(missing) > 0 {
		return perrors.Validation(invalidPayload, missing)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       integralNumberHook,
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(input); err != nil {
		var decodeErr *mapstructure.DecodeError
		if errors.Is(err, errNotInteger) && errors.As(err, &decodeErr) {
			return perrors.Validation(invalidPayload, map[string]string{decodeErr.Name(): "failed on rule: integer"})
		}
		return perrors.Validation(invalidPayload+": "+err.Error(), nil)
	}
	return v.Struct(out)
}

// integralNumberHook rejects JSON numbers with a fractional part, or outside the int64 range,
// bound for an integer field. mapstructure would otherwise truncate them.
func integralNumberHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float64 {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	f := reflect.ValueOf(data).Float()
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, errNotInteger
	}
	return data, nil
}

// Struct validates an already decoded DTO.
func (v *Validator) Struct(dto any) error {
	err := v.validate.Struct(dto)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return perrors.Validation(invalidPayload, nil)
	}
	fields := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
	}
	return perrors.Validation(invalidPayload, fields)
}
