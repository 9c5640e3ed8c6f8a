package service

import (
	"strings"
)

// RenderTemplate substitutes {token} placeholders with contact fields.
// Session and blast templates use {firstName}, {lastName} and {city}:
//
//	"Hi {firstName}, will you vote on Tuesday?"
//
// Unknown tokens pass through untouched so typos surface in the preview
// instead of sending a blank.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}
