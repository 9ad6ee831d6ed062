package report

import (
	"strings"
	"unicode/utf8"

	"github.com/firewatch/suggestionbox/internal/model"
)

// MinMessageLength is the minimum message length in code points.
const MinMessageLength = 10

// Field error codes.
const (
	CodeInvalidCategory = "InvalidCategory"
	CodeMissingArea     = "MissingArea"
	CodeMessageTooShort = "MessageTooShort"
	CodeInvalidFile     = "InvalidFile"
)

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationErrors collects every violation found in a submission.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return strings.Join(parts, "; ")
}

// categoryAliases maps accepted spellings to the canonical category.
var categoryAliases = map[string]model.Category{
	"Discrimination":  model.CategoryDiscrimination,
	"Corruption":      model.CategoryCorruption,
	"Nonconformity":   model.CategoryNonconformity,
	"Nonconformities": model.CategoryNonconformity,
	"Suggestion":      model.CategorySuggestion,
	"Suggestions":     model.CategorySuggestion,
}

var categoryMessage = func() string {
	names := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		names[i] = string(c)
	}
	return "category must be one of " + strings.Join(names, ", ")
}()

// NormalizeCategory returns the canonical category for s.
func NormalizeCategory(s string) (model.Category, bool) {
	c, ok := categoryAliases[s]
	return c, ok
}

// Validate checks sub and returns the normalized submission. It never
// stops at the first problem.
func Validate(sub model.Submission) (model.Submission, ValidationErrors) {
	var errs ValidationErrors
	out := sub

	if c, ok := NormalizeCategory(string(sub.Category)); ok {
		out.Category = c
	} else {
		errs = append(errs, FieldError{
			Field:   "category",
			Code:    CodeInvalidCategory,
			Message: categoryMessage,
		})
	}

	if strings.TrimSpace(sub.Area) == "" {
		errs = append(errs, FieldError{Field: "area", Code: CodeMissingArea, Message: "area is required"})
	}

	if utf8.RuneCountInString(sub.Message) < MinMessageLength {
		errs = append(errs, FieldError{
			Field:   "message",
			Code:    CodeMessageTooShort,
			Message: "message must be at least 10 characters",
		})
	}

	if f := sub.File; f != nil {
		if f.Filename == "" || f.Size < 0 || f.Size != int64(len(f.Data)) {
			errs = append(errs, FieldError{Field: "file", Code: CodeInvalidFile, Message: "file is malformed"})
		}
	}

	return out, errs
}
