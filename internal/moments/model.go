package moments

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxDescriptionLength bounds a moment description in Unicode code points.
const MaxDescriptionLength = 2000

const (
	maxIdentifierLength = 190
	dateLayout          = "2006-01-02"
	displayDateLayout   = "2 Jan 2006"
)

var (
	// ErrInvalidMomentID indicates that a moment identifier is empty or exceeds storage bounds.
	ErrInvalidMomentID = errors.New("moments: invalid moment id")
	// ErrInvalidDate indicates that a value is not a YYYY-MM-DD calendar date.
	ErrInvalidDate = errors.New("moments: invalid date")
)

// MomentID is the opaque identifier assigned by the remote store.
type MomentID string

// NewMomentID validates raw input and returns a MomentID.
func NewMomentID(rawInput string) (MomentID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidMomentID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidMomentID, maxIdentifierLength)
	}
	return MomentID(trimmed), nil
}

// String returns the underlying string identifier.
func (id MomentID) String() string {
	return string(id)
}

// UnmarshalJSON accepts both numeric and string identifiers.
func (id *MomentID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*id = MomentID(value)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidMomentID, string(trimmed))
	}
	*id = MomentID(number.String())
	return nil
}

// Moment is one journal entry as returned by the remote store.
type Moment struct {
	ID            MomentID  `json:"id"`
	Title         string    `json:"title"`
	Date          string    `json:"date"`
	Description   string    `json:"description"`
	Feelings      []Feeling `json:"feelings"`
	ImageFilename string    `json:"image_filename"`
	ImageData     string    `json:"image_data"`
	ImageCaption  string    `json:"image_caption"`
}

// HasImage reports whether an image is stored with the moment.
func (m Moment) HasImage() bool {
	return m.ImageFilename != "" || m.ImageData != ""
}

// Summary is the list view of a moment.
type Summary struct {
	ID    MomentID `json:"id"`
	Title string   `json:"title"`
	Date  string   `json:"date"`
}

// ParseDate validates a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return parsed, nil
}

// DisplayDate renders a stored date for the detail view. Values that do not
// parse are returned unchanged.
func DisplayDate(value string) string {
	parsed, err := ParseDate(value)
	if err != nil {
		// stored values sometimes carry a time component
		if withTime, timeErr := time.Parse(time.RFC3339, strings.TrimSpace(value)); timeErr == nil {
			return withTime.Format(displayDateLayout)
		}
		return value
	}
	return parsed.Format(displayDateLayout)
}

// DescriptionCharsLeft reports how many code points remain before a
// description reaches MaxDescriptionLength. The result is negative when the
// description is already too long.
func DescriptionCharsLeft(description string) int {
	return MaxDescriptionLength - utf8.RuneCountInString(description)
}
