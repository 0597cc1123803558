package station

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMergeMismatch      = errors.New("station merge mismatch")
	ErrEmptyStationSet    = errors.New("empty station set")
	ErrNoMatch            = errors.New("no matching station")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrIncompleteStation  = errors.New("incomplete station record")
)

// MergeMismatchError lists the identifiers that prevent a one-to-one join
type MergeMismatchError struct {
	OnlyBasic      []string
	OnlyExtra      []string
	DuplicateBasic []string
	DuplicateExtra []string
}

func (e *MergeMismatchError) Error() string {
	var parts []string
	add := func(label string, ids []string) {
		if len(ids) > 0 {
			parts = append(parts, fmt.Sprintf("%s [%s]", label, strings.Join(ids, ", ")))
		}
	}
	add("only in feed", e.OnlyBasic)
	add("only on page", e.OnlyExtra)
	add("duplicated in feed", e.DuplicateBasic)
	add("duplicated on page", e.DuplicateExtra)
	return fmt.Sprintf("%s: %s", ErrMergeMismatch, strings.Join(parts, "; "))
}

func (e *MergeMismatchError) Is(target error) bool {
	return target == ErrMergeMismatch
}

func (e *MergeMismatchError) empty() bool {
	return len(e.OnlyBasic) == 0 && len(e.OnlyExtra) == 0 &&
		len(e.DuplicateBasic) == 0 && len(e.DuplicateExtra) == 0
}
