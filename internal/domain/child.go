package domain

import (
	"slices"
	"time"
)

// ChildProfile represents one tracked child. The profile is the unit of
// sharing: caregivers granted access to the profile inherit access to all
// of the child's dependent records.
//
// OwnerID is set at creation and never reassigned. SharedWith is always
// present (possibly empty), deduplicated, and never contains the owner.
// Owner access is implicit, not enumerated.
type ChildProfile struct {
	Syncable
	OwnerID    string     `json:"owner_id"`
	Name       string     `json:"name"`
	BirthDate  time.Time  `json:"birth_date"`
	DueDate    *time.Time `json:"due_date,omitempty"` // For adjusted-age tracking of preemies
	SharedWith []string   `json:"shared_with"`
}

// NewChildProfile creates a profile owned by ownerID with an empty share set.
func NewChildProfile(id, ownerID, name string, birthDate time.Time) *ChildProfile {
	p := &ChildProfile{
		OwnerID:    ownerID,
		Name:       name,
		BirthDate:  birthDate,
		SharedWith: []string{},
	}
	p.ID = id
	p.InitTimestamps()
	return p
}

// Owner returns the profile's owner identifier.
func (p *ChildProfile) Owner() string { return p.OwnerID }

// OwnSharedWith returns the profile's share set.
func (p *ChildProfile) OwnSharedWith() []string { return p.SharedWith }

// IsOwner returns true if userID is the profile's owner.
func (p *ChildProfile) IsOwner(userID string) bool {
	return userID != "" && userID == p.OwnerID
}

// IsShared returns true if at least one collaborator has access.
func (p *ChildProfile) IsShared() bool {
	return len(p.SharedWith) > 0
}

// IsSharedWith returns true if userID appears in the share set.
func (p *ChildProfile) IsSharedWith(userID string) bool {
	return slices.Contains(p.SharedWith, userID)
}

// AddCollaborator adds userID to the share set. Adding an id that is
// already present is a no-op, and the owner is never added: owner access
// is implicit. Returns true if the set changed.
func (p *ChildProfile) AddCollaborator(userID string) bool {
	if userID == "" || userID == p.OwnerID || p.IsSharedWith(userID) {
		return false
	}
	p.SharedWith = append(p.SharedWith, userID)
	p.Touch()
	return true
}

// RemoveCollaborator removes userID from the share set.
// Removing an absent id is a no-op. Returns true if the set changed.
func (p *ChildProfile) RemoveCollaborator(userID string) bool {
	i := slices.Index(p.SharedWith, userID)
	if i < 0 {
		return false
	}
	p.SharedWith = slices.Delete(p.SharedWith, i, i+1)
	p.Touch()
	return true
}

// NormalizeSharedWith repairs a share set read from storage: nil becomes
// an empty set, duplicates collapse, and the owner is dropped. Records
// written by older clients may violate any of these.
func (p *ChildProfile) NormalizeSharedWith() {
	normalized := make([]string, 0, len(p.SharedWith))
	for _, id := range p.SharedWith {
		if id == "" || id == p.OwnerID || slices.Contains(normalized, id) {
			continue
		}
		normalized = append(normalized, id)
	}
	p.SharedWith = normalized
}
