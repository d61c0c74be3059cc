package core

import "fmt"

// EmploymentStatus is a closed set. Writes go through the transition
// helpers below rather than free-form assignment so an employee can
// never hold an unknown status.
type EmploymentStatus string

const (
	StatusProbationary EmploymentStatus = "probationary"
	StatusRegular      EmploymentStatus = "regular"
	StatusContractual  EmploymentStatus = "contractual"
)

func ParseEmploymentStatus(value string) (EmploymentStatus, error) {
	switch EmploymentStatus(value) {
	case StatusProbationary, StatusRegular, StatusContractual:
		return EmploymentStatus(value), nil
	default:
		return "", fmt.Errorf("unknown employment status %q", value)
	}
}

// Promote is the only legal status mutation originating from the
// probation pipeline: probationary employees become regular.
func (s EmploymentStatus) Promote() (EmploymentStatus, error) {
	if s != StatusProbationary {
		return s, fmt.Errorf("cannot promote employee with status %q", string(s))
	}
	return StatusRegular, nil
}
