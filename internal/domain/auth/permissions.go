package auth

const (
	RoleEmployee       = "Employee"
	RoleDepartmentHead = "DepartmentHead"
	RoleFinance        = "Finance"
	RoleHR             = "HR"
)

const (
	PermEmployeesRead   = "core.employees.read"
	PermEmployeesWrite  = "core.employees.write"
	PermOrgRead         = "core.org.read"
	PermOrgWrite        = "core.org.write"
	PermCalendarRead    = "calendar.read"
	PermCalendarWrite   = "calendar.write"
	PermRequestsRead    = "requests.read"
	PermRequestsWrite   = "requests.write"
	PermRequestsEndorse = "requests.endorse"
	PermRequestsFinal   = "requests.finalize"
	PermBalancesRead    = "balances.read"
	PermReportsRead     = "reports.read"
	PermProbationRead   = "probation.read"
	PermProbationRun    = "probation.run"
)

var DefaultPermissions = []string{
	PermEmployeesRead,
	PermEmployeesWrite,
	PermOrgRead,
	PermOrgWrite,
	PermCalendarRead,
	PermCalendarWrite,
	PermRequestsRead,
	PermRequestsWrite,
	PermRequestsEndorse,
	PermRequestsFinal,
	PermBalancesRead,
	PermReportsRead,
	PermProbationRead,
	PermProbationRun,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermEmployeesRead,
		PermOrgRead,
		PermCalendarRead,
		PermRequestsRead,
		PermRequestsWrite,
		PermBalancesRead,
		PermReportsRead,
	},
	RoleDepartmentHead: {
		PermEmployeesRead,
		PermOrgRead,
		PermCalendarRead,
		PermRequestsRead,
		PermRequestsWrite,
		PermRequestsEndorse,
		PermBalancesRead,
		PermReportsRead,
	},
	RoleFinance: {
		PermEmployeesRead,
		PermOrgRead,
		PermCalendarRead,
		PermRequestsRead,
		PermRequestsFinal,
		PermBalancesRead,
		PermReportsRead,
	},
	RoleHR: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermOrgRead,
		PermOrgWrite,
		PermCalendarRead,
		PermCalendarWrite,
		PermRequestsRead,
		PermBalancesRead,
		PermReportsRead,
		PermProbationRead,
		PermProbationRun,
	},
}
