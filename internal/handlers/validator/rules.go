package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var agentIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.:-]*$`)

// agentIDValidator accepts the thread and message ids handed out by the agent API.
func agentIDValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return agentIDRegex.MatchString(val)
}

func registerFn(tag string, fn func(fl validator.FieldLevel) bool) func(v *validator.Validate) {
	return func(v *validator.Validate) {
		_ = v.RegisterValidation(tag, fn)
	}
}

func NewFeedbackValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("agent_id", agentIDValidator),
		},
	}
}
