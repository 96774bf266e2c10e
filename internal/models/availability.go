package models

import "time"

type AvailabilityStatus string

const (
	StatusAvailable   AvailabilityStatus = "AVAILABLE"
	StatusUnavailable AvailabilityStatus = "UNAVAILABLE"
)

func (s AvailabilityStatus) Valid() bool {
	return s == StatusAvailable || s == StatusUnavailable
}

type AvailabilityRecord struct {
	UserID        string             `json:"userId"`
	Status        AvailabilityStatus `json:"status"`
	Reason        string             `json:"reason"`
	LastUpdatedAt time.Time          `json:"lastUpdatedAt"`
	ExpiresAt     time.Time          `json:"expiresAt"`
}

// Expired treats expiresAt itself as already expired.
func (r AvailabilityRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// UnavailableRecord is what a user without a live record reports.
func UnavailableRecord(userID string) AvailabilityRecord {
	return AvailabilityRecord{UserID: userID, Status: StatusUnavailable}
}

// Present is false for UnavailableRecord defaults.
func (r AvailabilityRecord) Present() bool { return !r.LastUpdatedAt.IsZero() }

// TeamAvailability is a record joined with the owner's profile.
type TeamAvailability struct {
	AvailabilityRecord
	User UserSummary `json:"user"`
}
