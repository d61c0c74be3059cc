package probation

import "time"

// RecordStatus is the probation lifecycle state. A record is created
// active when a probationary employee is hired and completes exactly
// once, when its expected end date passes.
type RecordStatus string

const (
	StatusActive    RecordStatus = "active"
	StatusCompleted RecordStatus = "completed"
)

// Record tracks one employee's probation period. Notified flips with
// the promotion itself, so a sweep re-run over a completed record never
// sends a second notice.
type Record struct {
	ID          string       `json:"id"`
	EmployeeID  string       `json:"employeeId"`
	StartDate   time.Time    `json:"startDate"`
	ExpectedEnd time.Time    `json:"expectedEnd"`
	Status      RecordStatus `json:"status"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
	Notified    bool         `json:"notified"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
