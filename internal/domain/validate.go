package domain

import (
	"strings"
	"unicode/utf8"

	domainerrors "github.com/taskboard/taskboard-server/internal/errors"
)

// Field limits.
const (
	MaxBoardTitle   = 100
	MaxListTitle    = 50
	MaxCardTitle    = 100
	MaxDescription  = 500
	MaxLabelText    = 30
	MaxBoardMembers = 100
)

// DefaultListTitles are the lists every new board starts with.
var DefaultListTitles = []string{"Lista de tareas", "En proceso", "Hecho"}

// Validation errors surfaced verbatim to API clients.
var (
	ErrBoardTitleRequired = domainerrors.Validation("Board title is required")
	ErrListTitleRequired  = domainerrors.Validation("List title is required")
	ErrCardTitleRequired  = domainerrors.Validation("Card title is required")
	ErrDescriptionTooLong = domainerrors.Validationf("Description cannot exceed %d characters", MaxDescription)
	ErrLabelInvalid       = domainerrors.Validation("Label text and color are required")
	ErrLabelColor         = domainerrors.Validation("Label color must be a palette color or a hex color")
)

func validateTitle(title string, max int, required error) error {
	t := strings.TrimSpace(title)
	if t == "" {
		return required
	}
	if utf8.RuneCountInString(t) > max {
		return domainerrors.Validationf("Title cannot exceed %d characters", max)
	}
	return nil
}

// ValidateBoardTitle checks a board title.
func ValidateBoardTitle(title string) error {
	return validateTitle(title, MaxBoardTitle, ErrBoardTitleRequired)
}

// ValidateListTitle checks a list title.
func ValidateListTitle(title string) error {
	return validateTitle(title, MaxListTitle, ErrListTitleRequired)
}

// ValidateCardTitle checks a card title.
func ValidateCardTitle(title string) error {
	return validateTitle(title, MaxCardTitle, ErrCardTitleRequired)
}

// ValidateDescription checks a board or card description.
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(strings.TrimSpace(description)) > MaxDescription {
		return ErrDescriptionTooLong
	}
	return nil
}

// ValidateLabel checks that a label has text and colour.
func ValidateLabel(l Label) error {
	if strings.TrimSpace(l.Text) == "" || strings.TrimSpace(l.Color) == "" {
		return ErrLabelInvalid
	}
	if utf8.RuneCountInString(l.Text) > MaxLabelText {
		return domainerrors.Validationf("Label text cannot exceed %d characters", MaxLabelText)
	}
	return nil
}
