package models

// UserRole represents the roles issued by the identity provider.
type UserRole string

const (
	RoleUser       UserRole = "user"
	RoleStaff      UserRole = "staff"
	RoleSupervisor UserRole = "supervisor"
	RoleManager    UserRole = "manager"
	RoleAdmin      UserRole = "admin"
)

// Actor is the identity performing an operation. It is passed explicitly into every
// core call instead of being read from ambient session state.
type Actor struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Role UserRole `json:"role"`
}

// User mirrors the subset of the users table the maintenance core reads.
type User struct {
	ID       string   `db:"id" json:"id"`
	FullName string   `db:"full_name" json:"name"`
	Email    string   `db:"email" json:"email,omitempty"`
	Role     UserRole `db:"role" json:"role"`
	Active   bool     `db:"active" json:"-"`
}

// Technician is the list item returned by GET /users/technicians.
type Technician struct {
	ID   string   `db:"id" json:"id"`
	Name string   `db:"full_name" json:"name"`
	Role UserRole `db:"role" json:"role"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
