package domain

import "time"

// SubmissionStatus is the onboarding state of a personnel submission
type SubmissionStatus string

const (
	StatusPending            SubmissionStatus = "PENDING"
	StatusPendingEndorsement SubmissionStatus = "PENDING_ENDORSEMENT"
	StatusEndorsed           SubmissionStatus = "ENDORSED"
	StatusValidated          SubmissionStatus = "VALIDATED"
	StatusCompleted          SubmissionStatus = "COMPLETED"
	StatusRejected           SubmissionStatus = "REJECTED"
)

// PersonnelStatus is the auxiliary status used to gate personnel menu entries
type PersonnelStatus struct {
	SubmissionStatus     SubmissionStatus `json:"submissionStatus"`
	VerificationUploaded bool             `json:"verificationFormUploaded"`
}

// OnboardingStatus reports whether a personnel has submitted the onboarding form
type OnboardingStatus struct {
	HasSubmitted bool `json:"hasSubmitted"`
}

// NotificationIcon selects the icon shown next to a notification
type NotificationIcon string

const (
	IconBell    NotificationIcon = "BELL"
	IconUser    NotificationIcon = "USER"
	IconSetting NotificationIcon = "SETTING"
)

// Notification is an activity entry published by the backend
type Notification struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Timestamp   time.Time        `json:"timestamp"`
	IconType    NotificationIcon `json:"iconType"`
	Role        Role             `json:"role"`
	UserID      *int64           `json:"userId,omitempty"`
}
