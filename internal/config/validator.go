package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate validates the HarnessConfig using struct tags and cross-field
// rules.
func (c *HarnessConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateAlertTransports(); err != nil {
		return err
	}

	return nil
}

// validateAlertTransports ensures a partially configured transport (e.g. a
// chat ID with no bot token) is rejected rather than silently disabled.
func (c *HarnessConfig) validateAlertTransports() error {
	tg := c.Alert.Telegram
	if (tg.BotToken == "") != (tg.ChatID == "") {
		return errors.New("alert.telegram: bot_token and chat_id must both be set or both be empty")
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-facing
// messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s items", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
