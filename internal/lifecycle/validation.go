package lifecycle

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/facility-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/facility-maintenance-api/pkg/errors"
)

// Fields carries the user-editable part of a request form. Nil pointers mean
// "not provided".
type Fields struct {
	AssetID                *string
	AssetName              *string
	AssetCode              *string
	Title                  *string
	Description            *string
	Priority               *models.Priority
	ExpectedCompletionTime *time.Time
}

// submission is the shape a request must have to leave the draft state.
type submission struct {
	AssetID     string `json:"assetId" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Priority    string `json:"priority" validate:"required,oneof=low medium high urgent"`
}

var submitValidator = newSubmitValidator()

func newSubmitValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	return v
}

// ValidateSubmission checks the fields required for a non-draft request and
// returns a validation error whose details map each missing field to a message.
func ValidateSubmission(req *models.MaintenanceRequest) error {
	s := submission{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Priority:    string(req.Priority),
	}
	if req.AssetID != nil {
		s.AssetID = strings.TrimSpace(*req.AssetID)
	}
	err := submitValidator.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request")
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			details[fe.Field()] = "is required"
		case "oneof":
			details[fe.Field()] = "must be one of low, medium, high, urgent"
		default:
			details[fe.Field()] = "is invalid"
		}
	}
	return appErrors.WithDetails(appErrors.ErrValidation, "request is missing required fields", details)
}

// validateFields rejects malformed values that are never acceptable, even in a draft.
func validateFields(f Fields) error {
	if f.Priority != nil && *f.Priority != "" && !f.Priority.Valid() {
		return appErrors.WithDetails(appErrors.ErrValidation, "invalid request", map[string]string{
			"priority": "must be one of low, medium, high, urgent",
		})
	}
	return nil
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}
