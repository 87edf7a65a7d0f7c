package helpers

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Initialize a validator instance using go-playground's validator package
var Validator = validator.New()

// Repository urls must point at a github project: https?://github.com/<owner>/<repo>,
// optionally with a #branch fragment on the last segment.
var repoURLPattern = regexp.MustCompile(`^https?://github\.com/([^/]+/)+[^/]+$`)

func init() {
	_ = Validator.RegisterValidation("repourl", func(fl validator.FieldLevel) bool {
		return repoURLPattern.MatchString(fl.Field().String())
	})
}

// Validate checks the struct fields against the specified validation tags.
func Validate(val interface{}) error {
	return Validator.Struct(val)
}

// HandleSuccess sends a structured JSON response for successful requests.
func HandleSuccess(context *fiber.Ctx, statusCode int, message string, data interface{}) error {
	return context.Status(statusCode).JSON(fiber.Map{
		"status":  "success",
		"message": message,
		"error":   nil,
		"data":    data,
	})
}

// HandleError sends a structured JSON response for errors.
func HandleError(context *fiber.Ctx, statusCode int, message string, err error) error {
	var detail interface{}
	if err != nil {
		detail = err.Error()
	}
	return context.Status(statusCode).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"error":   detail,
		"data":    nil,
	})
}
