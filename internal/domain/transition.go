package domain

import (
	"fmt"

	apperrors "zerox/internal/errors"
)

// transitions maps source → target → roles allowed to trigger it.
var transitions = map[Status]map[Status][]Role{
	StatusPending: {
		StatusPaid:      {RoleSystem},
		StatusCancelled: {RoleCustomer, RoleShop},
	},
	StatusPaid: {
		StatusPrinting: {RoleShop},
	},
	StatusPrinting: {
		StatusCompleted: {RoleShop},
	},
}

// CheckTransition validates a requested status change. A pair absent from the
// table is an InvalidTransitionError; a listed pair requested by the wrong role
// is a ForbiddenError.
func CheckTransition(current, target Status, actor Role) error {
	targets, ok := transitions[current]
	if !ok {
		return apperrors.NewInvalidTransitionError(string(current), string(target))
	}

	roles, ok := targets[target]
	if !ok {
		return apperrors.NewInvalidTransitionError(string(current), string(target))
	}

	for _, r := range roles {
		if r == actor {
			return nil
		}
	}

	return apperrors.NewForbiddenError(fmt.Sprintf("role %s may not move an order from %s to %s", actor, current, target))
}

func AllowedTargets(current Status, actor Role) []Status {
	var out []Status
	for _, target := range []Status{StatusPaid, StatusPrinting, StatusCompleted, StatusCancelled} {
		if CheckTransition(current, target, actor) == nil {
			out = append(out, target)
		}
	}
	return out
}
