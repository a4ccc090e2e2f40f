package moments

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrInvalidForm is matched by every ValidationError.
var ErrInvalidForm = errors.New("moments: invalid form")

// FieldProblem describes why a single field was rejected.
type FieldProblem struct {
	Field   Field
	Message string
}

// ValidationError collects every problem found in a submitted form.
type ValidationError struct {
	Problems []FieldProblem
}

func (e *ValidationError) Error() string {
	messages := make([]string, 0, len(e.Problems))
	for _, problem := range e.Problems {
		messages = append(messages, problem.Message)
	}
	return "moments: invalid form: " + strings.Join(messages, "; ")
}

// Is lets callers match the error with errors.Is(err, ErrInvalidForm).
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidForm
}

type problemList []FieldProblem

func (l *problemList) add(field Field, message string) {
	*l = append(*l, FieldProblem{Field: field, Message: message})
}

func (l problemList) err() error {
	if len(l) == 0 {
		return nil
	}
	return &ValidationError{Problems: l}
}

// ValidateCreateForm checks the required fields of the add-moment form.
func ValidateCreateForm(form Form) error {
	var problems problemList
	validateCommon(&problems, form, form.Image != nil)
	if strings.TrimSpace(form.Description) == "" {
		problems.add(FieldDescription, "description is required")
	}
	return problems.err()
}

// ValidateUpdateForm checks an edit form against the moment being edited.
func ValidateUpdateForm(original Moment, form Form) error {
	var problems problemList
	validateCommon(&problems, form, original.HasImage() || form.Image != nil)
	return problems.err()
}

func validateCommon(problems *problemList, form Form, hasImage bool) {
	if strings.TrimSpace(form.Title) == "" {
		problems.add(FieldTitle, "title is required")
	}
	if _, err := ParseDate(form.Date); err != nil {
		problems.add(FieldDate, "date must be a valid YYYY-MM-DD date")
	}
	if utf8.RuneCountInString(form.Description) > MaxDescriptionLength {
		problems.add(FieldDescription, "description exceeds 2000 characters")
	}
	for _, feeling := range NormalizeFeelings(form.Feelings) {
		if !feeling.Known() {
			problems.add(FieldFeelings, "unknown feeling "+string(feeling))
		}
	}
	if form.Image != nil && len(form.Image.Content) == 0 {
		problems.add(FieldImage, "image file is empty")
	}
	switch {
	case hasImage && strings.TrimSpace(form.ImageCaption) == "":
		problems.add(FieldImageCaption, "image caption is required with an image")
	case !hasImage && form.ImageCaption != "":
		problems.add(FieldImageCaption, "image caption requires an image")
	}
}
