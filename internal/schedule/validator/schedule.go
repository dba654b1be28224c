package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "roster/pkg/errors"
	"roster/pkg/logger"
	"roster/pkg/model"

	"github.com/go-playground/validator/v10"
)

// MaxSessionLength bounds a single ranked session.
const MaxSessionLength = 12 * time.Hour

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// WeekQuery addresses one week of a container.
type WeekQuery struct {
	ContainerID string `json:"container_id" validate:"required,mongodb"`
	WeekOfMonth int    `json:"week_of_month" validate:"week_of_month"`
}

type ContainerQuery struct {
	ContainerID string `json:"container_id" validate:"required,mongodb"`
}

type ScheduleValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewScheduleValidator(log *logger.Logger) *ScheduleValidator {
	v := validator.New()

	if err := v.RegisterValidation("week_of_month", validateWeekOfMonth); err != nil {
		log.Fatal("Failed to register 'week_of_month' validator", "error", err)
	}
	v.RegisterStructValidation(validateRankRequest, model.RankRequest{})

	log.Debug("Schedule validator initialized")

	return &ScheduleValidator{
		validate: v,
		logger:   log,
	}
}

func validateWeekOfMonth(fl validator.FieldLevel) bool {
	week := fl.Field().Int()
	return week >= 1 && week <= 6
}

func validateRankRequest(sl validator.StructLevel) {
	req := sl.Current().Interface().(model.RankRequest)

	if !req.StartTime.IsZero() && !req.EndTime.IsZero() && req.EndTime.Sub(req.StartTime) > MaxSessionLength {
		sl.ReportError(req.EndTime, "EndTime", "EndTime", "max_length", "")
	}
	if !req.Period.IsZero() && (req.Period.WeekOfMonth < 1 || req.Period.WeekOfMonth > 6 || req.Period.Month < 1 || req.Period.Month > 12) {
		sl.ReportError(req.Period, "Period", "Period", "valid_period", "")
	}
}

func (v *ScheduleValidator) ValidateRankRequest(req *model.RankRequest) error {
	return v.validateStruct(req)
}

func (v *ScheduleValidator) ValidateWeekQuery(q *WeekQuery) error {
	return v.validateStruct(q)
}

func (v *ScheduleValidator) ValidateContainerQuery(q *ContainerQuery) error {
	return v.validateStruct(q)
}

func (v *ScheduleValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ScheduleValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid object id", err.Field())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		case "week_of_month":
			message = "week_of_month must be between 1 and 6"
		case "max_length":
			message = fmt.Sprintf("session must not be longer than %s", MaxSessionLength)
		case "valid_period":
			message = "period must have month 1-12 and week_of_month 1-6"
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}

// ToAppError maps a validation failure to a 422 AppError listing every failed field.
func ToAppError(err error) *apperrors.AppError {
	var fieldErrs ValidationErrors
	if errors.As(err, &fieldErrs) {
		return apperrors.Validation("Request validation failed", map[string]any{"errors": fieldErrs})
	}
	return apperrors.Validation(err.Error(), nil)
}
