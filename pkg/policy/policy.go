// Package policy decides who may do what to an owned resource.
package policy

import "resenhas/pkg/apperr"

type Action int

const (
	ActionRead Action = iota
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Authorize lets anyone read and only the owner update or delete.
func Authorize(actorID, ownerID uint, action Action) error {
	switch action {
	case ActionRead:
		return nil
	case ActionUpdate, ActionDelete:
		if actorID != 0 && actorID == ownerID {
			return nil
		}
	}
	return apperr.ErrForbidden
}
