package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/workflow/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// These only fail on a programming error
	if err := Validate.RegisterValidation("task_status", validateTaskStatus); err != nil {
		panic(fmt.Sprintf("failed to register task_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("task_priority", validateTaskPriority); err != nil {
		panic(fmt.Sprintf("failed to register task_priority validator: %v", err))
	}
	if err := Validate.RegisterValidation("direction", validateDirection); err != nil {
		panic(fmt.Sprintf("failed to register direction validator: %v", err))
	}
	if err := Validate.RegisterValidation("view", validateView); err != nil {
		panic(fmt.Sprintf("failed to register view validator: %v", err))
	}
}

func validateTaskStatus(fl validator.FieldLevel) bool {
	return models.TaskStatus(fl.Field().String()).Valid()
}

// validateTaskPriority accepts an empty value so omitempty is not required on optional fields
func validateTaskPriority(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.Priority(value).Valid()
}

func validateDirection(fl validator.FieldLevel) bool {
	return models.Direction(fl.Field().String()).Valid()
}

func validateView(fl validator.FieldLevel) bool {
	return models.View(fl.Field().String()).Valid()
}

// SanitizeText trims whitespace and removes control characters except newline and tab
func SanitizeText(text string) string {
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return strings.TrimSpace(sanitized.String())
}

// FieldMessage turns a validator failure into a short user-facing sentence
func FieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "task_priority":
		return fmt.Sprintf("%s must be 'low', 'medium' or 'high'", field)
	case "task_status":
		return fmt.Sprintf("%s must be 'todo', 'doing' or 'done'", field)
	case "direction":
		return fmt.Sprintf("%s must be 'left' or 'right'", field)
	case "view":
		return fmt.Sprintf("%s must be 'timesheet', 'kanban', 'notepad' or 'settings'", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
