// Package menu builds the role-specific navigation menu.
package menu

import "naspac-portal/internal/domain"

// Action is what selecting an item does
type Action string

const (
	ActionNavigate Action = "navigate"
	ActionDownload Action = "download"
	ActionUpload   Action = "upload"
)

// Item is one entry of the navigation menu
type Item struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Icon     string `json:"icon"`
	Route    string `json:"route,omitempty"`
	Action   Action `json:"action"`
	Disabled bool   `json:"disabled"`
}

// Letter download routes served by the portal
const (
	EndorsedLetterRoute    = "/api/v1/documents/appointment-letter?type=endorsed"
	AppointmentLetterRoute = "/api/v1/documents/appointment-letter?type=job_confirmation"
)

func navigate(key, label, icon, route string) Item {
	return Item{Key: key, Label: label, Icon: icon, Route: route, Action: ActionNavigate}
}

// Build returns the ordered main menu for role. status gates the personnel
// entries; nil means it is still loading or could not be fetched.
func Build(role domain.Role, status *domain.PersonnelStatus) []Item {
	switch role {
	case domain.RoleAdmin:
		return []Item{
			navigate("1", "Dashboard", "dashboard", "/"),
			navigate("2", "Onboard Personnel", "user", "/onboarding"),
			navigate("3", "Shortlist Personnel", "select-personnel", "/shortlist"),
			navigate("4", "Endorsement", "endorse", "/endorsement"),
			navigate("5", "Manage Personnel", "manage", "/manage-personnel"),
			navigate("8", "Staff Management", "admin", "/staff-management"),
			navigate("9", "Dept. Placements", "bank", "/dept-placements"),
		}
	case domain.RoleStaff:
		return []Item{
			navigate("1", "Dashboard", "dashboard", "/"),
			navigate("2", "Onboard Personnel", "user", "/onboarding"),
			navigate("3", "Shortlist Personnel", "select-personnel", "/shortlist"),
			navigate("4", "Manage Personnel", "manage", "/manage-personnel"),
			navigate("5", "Dept. Placements", "bank", "/dept-placements"),
		}
	case domain.RoleSupervisor:
		return []Item{
			navigate("1", "Dashboard", "dashboard", "/"),
			navigate("9", "Dept. Placements", "bank", "/dept-placements"),
		}
	case domain.RolePersonnel:
		return personnelMenu(status)
	default:
		return nil
	}
}

func personnelMenu(status *domain.PersonnelStatus) []Item {
	var (
		submission domain.SubmissionStatus
		uploaded   bool
	)
	loading := status == nil
	if !loading {
		submission = status.SubmissionStatus
		uploaded = status.VerificationUploaded
	}
	endorsed := submission == domain.StatusEndorsed
	confirmed := submission == domain.StatusValidated || submission == domain.StatusCompleted

	uploadLabel := "Upload Verification"
	if uploaded {
		uploadLabel = "Verification Uploaded"
	}

	dashboard := navigate("1", "Dashboard", "dashboard", "/")
	dashboard.Disabled = loading || submission == ""

	return []Item{
		dashboard,
		{
			Key:      "3",
			Label:    "Endorsed Letter",
			Icon:     "printer",
			Route:    EndorsedLetterRoute,
			Action:   ActionDownload,
			Disabled: loading || !endorsed,
		},
		{
			Key:      "4",
			Label:    uploadLabel,
			Icon:     "printer",
			Action:   ActionUpload,
			Disabled: loading || !endorsed || uploaded,
		},
		{
			Key:      "5",
			Label:    "Appointment Letter",
			Icon:     "printer",
			Route:    AppointmentLetterRoute,
			Action:   ActionDownload,
			Disabled: loading || !confirmed,
		},
	}
}

// Settings returns the settings menu, identical for every role
func Settings() []Item {
	return []Item{
		navigate("6", "Profile", "user", "/profile"),
	}
}
