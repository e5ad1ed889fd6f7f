package domain

import "fmt"

// EntryStatus is the approval lifecycle state of a work entry. The string
// values match the status enum stored in the database.
type EntryStatus string

const (
	StatusDraft           EntryStatus = "DRAFT"
	StatusPending         EntryStatus = "PENDING"
	StatusApproved        EntryStatus = "APPROVED"
	StatusRejected        EntryStatus = "REJECTED"
	StatusPendingDeletion EntryStatus = "PENDING_DELETION"
)

// Valid reports whether s is one of the known statuses.
func (s EntryStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected, StatusPendingDeletion:
		return true
	}
	return false
}

func (s EntryStatus) String() string {
	return string(s)
}

// ParseStatus converts a string into an EntryStatus.
func ParseStatus(s string) (EntryStatus, error) {
	st := EntryStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown entry status %q", s)
	}
	return st, nil
}

// Editable reports whether an entry in this status accepts employee edits.
func (s EntryStatus) Editable() bool {
	switch s {
	case StatusDraft, StatusPending, StatusRejected:
		return true
	}
	return false
}

// Submittable reports whether an entry in this status can be submitted
// for approval.
func (s EntryStatus) Submittable() bool {
	return s == StatusDraft || s == StatusRejected
}

// SelfDeletable reports whether the owning employee may hard-delete an
// entry in this status without admin involvement. An entry with an open
// deletion request must go through the deletion-request flow instead.
func (s EntryStatus) SelfDeletable() bool {
	return s != StatusPendingDeletion
}
