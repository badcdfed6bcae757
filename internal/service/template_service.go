// internal/service/template_service.go
package service

import (
	"strings"

	"github.com/unclebandit/mailpulse-backend/internal/model"
)

func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

// ContactData maps a contact's fields to the placeholders campaign and
// automation templates may reference.
func ContactData(c *model.Contact) map[string]string {
	return map[string]string{
		"email":      c.Email,
		"first_name": orUnknown(c.FirstName),
		"last_name":  orUnknown(c.LastName),
	}
}

func orUnknown(value string) string {
	if value == "" {
		return "<unknown>"
	}
	return value
}
