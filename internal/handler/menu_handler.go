package handler

import (
	"net/http"

	"naspac-portal/internal/domain"
	"naspac-portal/internal/menu"
	"naspac-portal/internal/observability"
)

// MenuResponse holds the main and settings menus of the session role
type MenuResponse struct {
	Items         []menu.Item `json:"items"`
	Settings      []menu.Item `json:"settings"`
	StatusLoading bool        `json:"statusLoading,omitempty"`
}

// Menu builds the navigation menu. Personnel entries are gated on the
// submission status; when it cannot be fetched they stay disabled.
func Menu(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}
	role := c.Session().State().Role

	var status *domain.PersonnelStatus
	if role == domain.RolePersonnel {
		var err error
		status, err = c.Backend.PersonnelStatus(r.Context())
		if err != nil {
			observability.FromContext(r.Context()).Warn("failed to fetch personnel status", "error", err)
			status = nil
		}
	}

	items := menu.Build(role, status)
	if items == nil {
		items = []menu.Item{}
	}
	writeJSON(w, http.StatusOK, MenuResponse{
		Items:         items,
		Settings:      menu.Settings(),
		StatusLoading: role == domain.RolePersonnel && status == nil,
	})
}
