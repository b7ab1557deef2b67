// Package form turns raw submitted input into validated values.
//
// Validation is pure: no database, no HTTP. Each Validate function returns
// either a Valid* value or an apperror.FieldErrors describing every field that
// failed. The Valid* types have unexported fields, so the only way to obtain
// one is through validation, and services that accept them can never be handed
// unchecked input.
package form

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/sakif/snippetbin/internal/apperror"
)

const (
	MaxNameLength = 100    // characters, after trimming
	MaxCodeLength = 100000 // bytes (~100KB)
)

// SnippetInput is the snippet form as submitted. Templates re-render it
// unchanged when validation fails so the user's input is preserved.
type SnippetInput struct {
	Name   string
	Code   string
	Public bool
}

// ParseSnippet reads the snippet fields out of a submitted form.
//
// The public flag defaults to true when the field is absent. The HTML form
// sends a hidden public=false followed by the checkbox's public=true, so the
// last value wins and an unchecked box still comes through as false.
func ParseSnippet(v url.Values) SnippetInput {
	return SnippetInput{
		Name:   v.Get("name"),
		Code:   v.Get("code"),
		Public: parseBool(v["public"], true),
	}
}

// parseBool interprets the last submitted value of a checkbox-like field.
func parseBool(values []string, def bool) bool {
	if len(values) == 0 {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(values[len(values)-1])) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}

// ValidSnippet is a snippet that passed ValidateSnippet.
type ValidSnippet struct {
	name   string
	code   string
	public bool
}

func (s ValidSnippet) Name() string { return s.name }
func (s ValidSnippet) Code() string { return s.code }
func (s ValidSnippet) Public() bool { return s.public }

// WithPublic returns a copy with the public flag replaced. The service uses it
// to force anonymous snippets public.
func (s ValidSnippet) WithPublic(public bool) ValidSnippet {
	s.public = public
	return s
}

// ValidateSnippet checks a submitted snippet. Creation and editing share it.
//
// Rules:
//   - name is required and at most MaxNameLength characters once trimmed
//   - code is required (whitespace alone doesn't count) and at most
//     MaxCodeLength bytes; it is stored verbatim, indentation included
func ValidateSnippet(in SnippetInput) (ValidSnippet, error) {
	errs := apperror.FieldErrors{}

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		errs.Add("name", "This field is required.")
	case utf8.RuneCountInString(name) > MaxNameLength:
		errs.Add("name", fmt.Sprintf("Ensure this value has at most %d characters (it has %d).",
			MaxNameLength, utf8.RuneCountInString(name)))
	}

	switch {
	case strings.TrimSpace(in.Code) == "":
		errs.Add("code", "This field is required.")
	case len(in.Code) > MaxCodeLength:
		errs.Add("code", fmt.Sprintf("Code must be %d bytes or less.", MaxCodeLength))
	}

	if err := errs.Err(); err != nil {
		return ValidSnippet{}, err
	}

	return ValidSnippet{name: name, code: in.Code, public: in.Public}, nil
}
