// Package lifecycle holds the maintenance request state machine: the role and
// capability tables, the transition validator and the pure functions computing
// the next record for every lifecycle operation. Nothing here performs I/O.
package lifecycle

import "github.com/noah-isme/facility-maintenance-api/internal/models"

// Capability is a bit set of what a user role may do.
type Capability uint8

const (
	// CapRequest allows creating, drafting and submitting own requests.
	CapRequest Capability = 1 << iota
	// CapCoordinate allows assigning technicians, cancelling and reporting.
	CapCoordinate
	// CapService marks a role as eligible for technician assignment.
	CapService
)

var roleCapabilities = map[models.UserRole]Capability{
	models.RoleUser:       CapRequest,
	models.RoleStaff:      CapRequest | CapService,
	models.RoleSupervisor: CapRequest | CapCoordinate | CapService,
	models.RoleManager:    CapRequest | CapCoordinate | CapService,
	models.RoleAdmin:      CapRequest | CapCoordinate,
}

// CapabilitiesOf returns the capability set granted to role. Unknown roles get none.
func CapabilitiesOf(role models.UserRole) Capability {
	return roleCapabilities[role]
}

// Has reports whether every bit of want is present.
func (c Capability) Has(want Capability) bool {
	return want != 0 && c&want == want
}

// Can reports whether the actor's role grants want.
func Can(actor models.Actor, want Capability) bool {
	return CapabilitiesOf(actor.Role).Has(want)
}

// RolesWith lists the roles granting want, in a stable order.
func RolesWith(want Capability) []models.UserRole {
	ordered := []models.UserRole{
		models.RoleUser,
		models.RoleStaff,
		models.RoleSupervisor,
		models.RoleManager,
		models.RoleAdmin,
	}
	out := make([]models.UserRole, 0, len(ordered))
	for _, role := range ordered {
		if CapabilitiesOf(role).Has(want) {
			out = append(out, role)
		}
	}
	return out
}

// ActingRole is the part an actor plays with respect to one specific request.
type ActingRole string

const (
	ActingRequester   ActingRole = "requester"
	ActingCoordinator ActingRole = "coordinator"
	ActingTechnician  ActingRole = "technician"
)

// ActingRolesFor derives every acting role the actor holds on req. A nil req
// stands for a record that does not exist yet, which any requester may create.
func ActingRolesFor(actor models.Actor, req *models.MaintenanceRequest) []ActingRole {
	caps := CapabilitiesOf(actor.Role)
	if actor.ID == "" || caps == 0 {
		return nil
	}
	roles := make([]ActingRole, 0, 3)
	if caps.Has(CapRequest) && (req == nil || req.RequestedBy == actor.ID) {
		roles = append(roles, ActingRequester)
	}
	if caps.Has(CapCoordinate) {
		roles = append(roles, ActingCoordinator)
	}
	if req != nil && caps.Has(CapService) && req.AssigneeID() == actor.ID {
		roles = append(roles, ActingTechnician)
	}
	return roles
}
