package services

import "github.com/alphasafe/alphasafe-api/models"

// Operation names a guarded action
type Operation string

// Guarded operations
const (
	OpReadEntities     Operation = "entities:read"
	OpWriteEntities    Operation = "entities:write"
	OpManageTechnician Operation = "technicians:manage"
	OpListUsers        Operation = "users:list"
	OpManageUsers      Operation = "users:manage"
	OpExport           Operation = "interventions:export"
)

// adminOnly lists the operations reserved to admins. Everything else only
// needs a session.
var adminOnly = map[Operation]bool{
	OpManageTechnician: true,
	OpListUsers:        true,
	OpManageUsers:      true,
}

// Authorize decides whether user may perform op. A nil user is
// unauthenticated.
func Authorize(user *models.PublicUser, op Operation) error {
	if user == nil {
		return &UnauthorizedError{}
	}
	if adminOnly[op] && !user.IsAdmin() {
		return &ForbiddenError{Message: "admin role required"}
	}
	return nil
}
