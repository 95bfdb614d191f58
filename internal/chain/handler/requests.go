package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"chainlead/internal/chain/models"
	"chainlead/internal/chain/service"
	dErrors "chainlead/pkg/domain-errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DetectRequest is the HTTP request body for POST /chains/detect. Every field
// is optional; which ones are set decides the mode.
type DetectRequest struct {
	SoldListingID string `json:"soldListingId" validate:"max=128"`
	Street        string `json:"street" validate:"required_with=City State Zip,max=200"`
	City          string `json:"city" validate:"required_with=Street State Zip,max=100"`
	State         string `json:"state" validate:"required_with=Street City Zip,max=32"`
	Zip           string `json:"zip" validate:"required_with=Street City State,max=10"`
	Limit         int    `json:"limit" validate:"min=0"`

	// Populated by Validate
	detection service.Request
}

// Normalize trims whitespace from all string fields.
func (r *DetectRequest) Normalize() {
	r.SoldListingID = strings.TrimSpace(r.SoldListingID)
	r.Street = strings.TrimSpace(r.Street)
	r.City = strings.TrimSpace(r.City)
	r.State = strings.TrimSpace(r.State)
	r.Zip = strings.TrimSpace(r.Zip)
}

// Validate resolves the request to exactly one detection mode. A listing id
// wins over an address, and a partial address is rejected rather than
// treated as a batch scan.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *DetectRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	if r.SoldListingID != "" {
		if len(r.SoldListingID) > 128 {
			return dErrors.New(dErrors.CodeValidation, "soldListingId must be at most 128 characters")
		}
		r.detection = service.ByListingID(r.SoldListingID)
		return nil
	}

	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}

	if r.Street != "" {
		r.detection = service.ByAddress(models.Address{Street: r.Street, City: r.City, State: r.State, Zip: r.Zip})
		return nil
	}
	r.detection = service.BatchScan(r.Limit)
	return nil
}

// Detection returns the validated service request.
func (r *DetectRequest) Detection() service.Request {
	return r.detection
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid request")
	}
	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required_with":
		msg = "street, city, state and zip are required together"
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		msg = fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	default:
		msg = fmt.Sprintf("%s is invalid", fe.Field())
	}
	return dErrors.New(dErrors.CodeValidation, msg)
}
