package tenant

// Role is a user's role within their company.
type Role string

const (
	RoleOwner    Role = "company-owner"
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleSalesRep Role = "sales-rep"
	RoleEmployee Role = "employee"
	RoleReadOnly Role = "read-only"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Permission names an action a role may perform.
type Permission string

const (
	PermOpportunitiesView   Permission = "opportunities.view"
	PermOpportunitiesCreate Permission = "opportunities.create"
	PermOpportunitiesEdit   Permission = "opportunities.edit"
	PermOpportunitiesDelete Permission = "opportunities.delete"
	PermOpportunitiesBulk   Permission = "opportunities.bulk"

	PermLeadsView    Permission = "leads.view"
	PermLeadsCreate  Permission = "leads.create"
	PermLeadsEdit    Permission = "leads.edit"
	PermLeadsDelete  Permission = "leads.delete"
	PermLeadsConvert Permission = "leads.convert"

	PermCustomersView Permission = "customers.view"
	PermCustomersEdit Permission = "customers.edit"

	PermUsersView Permission = "users.view"
)

var (
	viewOnly = []Permission{
		PermOpportunitiesView, PermLeadsView, PermCustomersView, PermUsersView,
	}
	contributor = append(append([]Permission{}, viewOnly...),
		PermOpportunitiesCreate, PermOpportunitiesEdit,
		PermLeadsCreate, PermLeadsEdit,
		PermCustomersEdit,
	)
	seller  = append(append([]Permission{}, contributor...), PermLeadsConvert)
	manager = append(append([]Permission{}, seller...), PermOpportunitiesBulk)
	admin   = append(append([]Permission{}, manager...), PermOpportunitiesDelete, PermLeadsDelete)
)

var rolePermissions = map[Role]map[Permission]bool{
	RoleOwner:    setOf(admin),
	RoleAdmin:    setOf(admin),
	RoleManager:  setOf(manager),
	RoleSalesRep: setOf(seller),
	RoleEmployee: setOf(contributor),
	RoleReadOnly: setOf(viewOnly),
}

func setOf(perms []Permission) map[Permission]bool {
	out := make(map[Permission]bool, len(perms))
	for _, p := range perms {
		out[p] = true
	}
	return out
}

// Can reports whether the role grants the permission. Unknown roles grant nothing.
func (r Role) Can(p Permission) bool {
	return rolePermissions[r][p]
}
