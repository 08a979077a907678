package session

import (
	"errors"
	"fmt"
)

var ErrUnknownRole = errors.New("unknown role")

type Role string

const (
	RoleReadingInstructions Role = "ReadingInstructions"
	RoleReadyToInteract     Role = "ReadyToInteract"
	RoleDirector            Role = "Director"
	RoleMatcher             Role = "Matcher"
	RoleWaitingToSwitch     Role = "WaitingToSwitch"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleReadingInstructions, RoleReadyToInteract, RoleDirector, RoleMatcher, RoleWaitingToSwitch:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Opposite swaps Director and Matcher. Any other role has no opposite.
func (r Role) Opposite() (Role, bool) {
	switch r {
	case RoleDirector:
		return RoleMatcher, true
	case RoleMatcher:
		return RoleDirector, true
	default:
		return "", false
	}
}
