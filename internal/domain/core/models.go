package core

import "time"

type Employee struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	EmployeeNumber string     `json:"employeeNumber"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	DepartmentID   string     `json:"departmentId"`
	Position       string     `json:"position"`
	Status         EmploymentStatus `json:"status"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type Department struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	HeadUserID string    `json:"headUserId"`
	CreatedAt  time.Time `json:"createdAt"`
}
