package model

import (
	"errors"
	"fmt"
)

var (
	ErrNodeNotFound  = errors.New("node not found")
	ErrDuplicateNode = errors.New("duplicate node id")
)

// ValidationError reports that a mutation would leave the map in an invalid
// state. The map is unchanged when one is returned.
type ValidationError struct {
	Op     string
	NodeID string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: node %s: %s", e.Op, e.NodeID, e.Reason)
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
