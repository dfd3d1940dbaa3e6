package pastes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	fieldContent   = "content"
	fieldLanguage  = "language"
	fieldExpiresIn = "expiresIn"
	fieldMaxViews  = "maxViews"
	fieldID        = "id"
	fieldBody      = "body"
)

// createRequest mirrors the JSON body accepted by the create endpoint.
type createRequest struct {
	Content   *string `json:"content" validate:"required,notblank,maxbytes=512000"`
	Language  *string `json:"language"`
	ExpiresIn *int    `json:"expiresIn" validate:"omitempty,min=0,max=525600"`
	MaxViews  *int    `json:"maxViews" validate:"omitempty,min=1,max=1000000"`
}

var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty tags or nil functions.
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	return validate
}

// DecodeCreateRequest parses and validates a create body, reporting every failing field.
func DecodeCreateRequest(body []byte) (CreateInput, error) {
	trimmed := bytes.TrimSpace(body)
	var raw map[string]json.RawMessage
	if len(trimmed) == 0 || json.Unmarshal(trimmed, &raw) != nil || raw == nil {
		return CreateInput{}, &ValidationError{Fields: []FieldError{{Field: fieldBody, Message: "must be a JSON object"}}}
	}

	var request createRequest
	var failures []FieldError
	typeFailed := map[string]bool{}

	if value, ok := raw[fieldContent]; ok && !isJSONNull(value) {
		var content string
		if err := json.Unmarshal(value, &content); err != nil {
			failures = append(failures, FieldError{Field: fieldContent, Message: "must be a string"})
			typeFailed[fieldContent] = true
		} else {
			request.Content = &content
		}
	}
	if value, ok := raw[fieldLanguage]; ok && !isJSONNull(value) {
		var language string
		if err := json.Unmarshal(value, &language); err != nil {
			failures = append(failures, FieldError{Field: fieldLanguage, Message: "must be a string"})
			typeFailed[fieldLanguage] = true
		} else {
			request.Language = &language
		}
	}
	for _, numeric := range []struct {
		name   string
		target **int
	}{
		{name: fieldExpiresIn, target: &request.ExpiresIn},
		{name: fieldMaxViews, target: &request.MaxViews},
	} {
		value, ok := raw[numeric.name]
		if !ok || isJSONNull(value) {
			continue
		}
		parsed, err := parseInteger(value)
		if err != nil {
			failures = append(failures, FieldError{Field: numeric.name, Message: "must be an integer"})
			typeFailed[numeric.name] = true
			continue
		}
		*numeric.target = &parsed
	}

	if err := requestValidator.Struct(request); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return CreateInput{}, err
		}
		for _, fieldErr := range validationErrors {
			if typeFailed[fieldErr.Field()] {
				continue
			}
			failures = append(failures, FieldError{Field: fieldErr.Field(), Message: describeFieldError(fieldErr)})
		}
	}

	if len(failures) > 0 {
		return CreateInput{}, &ValidationError{Fields: failures}
	}

	input := CreateInput{
		Content:  *request.Content,
		MaxViews: request.MaxViews,
	}
	if request.ExpiresIn != nil {
		input.ExpiresIn = *request.ExpiresIn
	}
	if request.Language != nil {
		if language := strings.ToLower(strings.TrimSpace(*request.Language)); language != "" {
			input.Language = &language
		}
	}
	return input, nil
}

// ValidateID checks a path identifier before it reaches the store.
func ValidateID(id string) error {
	if err := requestValidator.Var(id, "required,alphanum,max=20"); err != nil {
		var validationErrors validator.ValidationErrors
		message := "is invalid"
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			message = describeFieldError(validationErrors[0])
		}
		return &ValidationError{Fields: []FieldError{{Field: fieldID, Message: message}}}
	}
	return nil
}

func describeFieldError(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be empty"
	case "maxbytes":
		return fmt.Sprintf("must not exceed %s bytes", fieldErr.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fieldErr.Param())
	case "max":
		if fieldErr.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fieldErr.Param())
		}
		return fmt.Sprintf("must be at most %s", fieldErr.Param())
	case "alphanum":
		return "must contain only letters and digits"
	default:
		return "is invalid"
	}
}

func isJSONNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}

// parseInteger accepts JSON numbers and numeric strings with an integral value.
func parseInteger(value json.RawMessage) (int, error) {
	var number json.Number
	if err := json.Unmarshal(value, &number); err != nil {
		return 0, err
	}
	if parsed, err := number.Int64(); err == nil {
		if parsed > math.MaxInt32 || parsed < math.MinInt32 {
			return 0, fmt.Errorf("integer out of range: %d", parsed)
		}
		return int(parsed), nil
	}
	floatValue, err := number.Float64()
	if err != nil {
		return 0, err
	}
	if floatValue != math.Trunc(floatValue) || math.Abs(floatValue) > math.MaxInt32 {
		return 0, fmt.Errorf("not an integer: %s", number)
	}
	return int(floatValue), nil
}
