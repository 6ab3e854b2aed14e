// Package views declares the portal views and the roles each one admits.
// The route guard only checks that a session exists; views check the role.
package views

import (
	"errors"
	"fmt"

	"naspac-portal/internal/domain"
)

var ErrUnknownView = errors.New("unknown view")

// RestrictedMessage is the placeholder shown when a role is outside a view's allow-list
const RestrictedMessage = "Access restricted."

// View is a page of the portal and the backend data it is built from
type View struct {
	Name    string
	Route   string
	Allowed []domain.Role

	data       []string
	dataByRole map[domain.Role][]string
}

// Allows reports whether role may open the view
func (v View) Allows(role domain.Role) bool {
	return role != domain.RoleNone && role.In(v.Allowed...)
}

// DataPaths returns the backend paths fetched to render the view for role
func (v View) DataPaths(role domain.Role) []string {
	if paths, ok := v.dataByRole[role]; ok {
		return paths
	}
	return v.data
}

var (
	everyone   = domain.Roles
	office     = []domain.Role{domain.RoleAdmin, domain.RoleStaff}
	adminOnly  = []domain.Role{domain.RoleAdmin}
	submission = []string{"/users/submission-status-counts", "/users/submissions"}
)

var registry = []View{
	{
		Name: "dashboard", Route: "/", Allowed: everyone,
		dataByRole: map[domain.Role][]string{
			domain.RoleAdmin:     {"/users/submission-status-counts"},
			domain.RoleStaff:     {"/users/submission-status-counts"},
			domain.RolePersonnel: {"/users/personnel-status"},
		},
	},
	{Name: "onboarding", Route: "/onboarding", Allowed: office},
	{Name: "shortlist", Route: "/shortlist", Allowed: office, data: []string{"/users/submissions"}},
	{Name: "manage-personnel", Route: "/manage-personnel", Allowed: office, data: submission},
	{
		Name: "dept-placements", Route: "/dept-placements",
		Allowed: []domain.Role{domain.RoleAdmin, domain.RoleStaff, domain.RoleSupervisor},
		data:    []string{"/users/departments", "/users/personnel", "/users/staff"},
	},
	{Name: "send-appointment-letters", Route: "/send-appointment-letters", Allowed: office, data: submission},
	{Name: "endorsement", Route: "/endorsement", Allowed: adminOnly, data: submission},
	{Name: "staff-management", Route: "/staff-management", Allowed: adminOnly, data: []string{"/users/staff"}},
	{Name: "profile", Route: "/profile", Allowed: adminOnly},
	{
		Name: "onboarding-form", Route: "/onboarding-form",
		Allowed: []domain.Role{domain.RolePersonnel},
		data:    []string{"/users/onboarding-status", "/users/ghana-universities"},
	},
	{Name: "notices", Route: "/notices", Allowed: everyone, data: []string{"/documents/notifications"}},
}

// All returns every view in declaration order
func All() []View {
	out := make([]View, len(registry))
	copy(out, registry)
	return out
}

// Lookup finds a view by name
func Lookup(name string) (View, bool) {
	for _, v := range registry {
		if v.Name == name {
			return v, true
		}
	}
	return View{}, false
}

// Authorize resolves name and checks role against its allow-list.
func Authorize(name string, role domain.Role) (View, error) {
	v, ok := Lookup(name)
	if !ok {
		return View{}, fmt.Errorf("%w: %q", ErrUnknownView, name)
	}
	if !v.Allows(role) {
		return v, fmt.Errorf("%w: %s cannot open %s", domain.ErrAccessRestricted, role, name)
	}
	return v, nil
}
