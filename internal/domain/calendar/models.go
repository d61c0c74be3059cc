package calendar

import "time"

// TermType distinguishes entitlement policy per academic term.
type TermType string

const (
	TermRegular TermType = "regular"
	TermSummer  TermType = "summer"
)

// Term is the entitlement period leave allowances are computed against.
// SharedPool is an explicit flag: when set, every leave category in the
// term draws from one common allowance instead of per-category records.
type Term struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	AcademicYear string    `json:"academicYear"`
	Type         TermType  `json:"type"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	IsCurrent    bool      `json:"isCurrent"`
	SharedPool   bool      `json:"sharedPool"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LeaveType is static reference data: a named kind of absence.
type LeaveType struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}
