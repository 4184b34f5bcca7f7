package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "personvault/pkg/domain-errors"
)

// GroupID identifies one real-world person across all attribute revisions.
// Identifiers are assigned in ascending order; matching ties break on the
// smallest one.
type GroupID int64

func (g GroupID) String() string {
	return strconv.FormatInt(int64(g), 10)
}

// ParseGroupID parses a positive decimal group identifier.
func ParseGroupID(s string) (GroupID, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "group id must be a positive integer")
	}
	return GroupID(v), nil
}

// RecordID identifies a single current-record row.
type RecordID int64

// Gender is stored with the single-letter Cyrillic codes of the source data.
type Gender string

const (
	GenderMale   Gender = "М"
	GenderFemale Gender = "Ж"
)

// NormalizeGender maps Latin aliases onto the canonical codes.
func NormalizeGender(raw string) Gender {
	switch strings.TrimSpace(raw) {
	case "М", "м", "M", "m":
		return GenderMale
	case "Ж", "ж", "F", "f":
		return GenderFemale
	}
	return Gender(strings.TrimSpace(raw))
}

func (g Gender) IsValid() bool {
	return g == GenderMale || g == GenderFemale
}

// IsMale reports whether surname must take part in matching.
func (g Gender) IsMale() bool {
	return g == GenderMale
}

// Attributes is the person attribute bundle shared by snapshots, current
// records and history records.
type Attributes struct {
	LastName   string     `json:"last_name"`
	FirstName  string     `json:"first_name"`
	MiddleName *string    `json:"middle_name"`
	BirthDate  *time.Time `json:"birth_date"`
	Gender     Gender     `json:"gender"`
	Address    string     `json:"address"`
	Phone      *string    `json:"phone"`
	Email      *string    `json:"email"`
}

// Snapshot is one attribute submission from a caller.
type Snapshot = Attributes

// CurrentRecord is the live state of a group. At most one row per group has
// IsCurrent set.
type CurrentRecord struct {
	ID          RecordID
	GroupID     GroupID
	ChangeSetID uuid.UUID
	Attributes
	CreatedAt time.Time
	IsCurrent bool
}

// HistoryRecord is a retired state, valid over [ValidFrom, ValidTo).
type HistoryRecord struct {
	ID          int64
	GroupID     GroupID
	ChangeSetID uuid.UUID
	Attributes
	ValidFrom time.Time
	ValidTo   time.Time
}

// Contains reports whether at falls inside the record's validity interval.
func (h *HistoryRecord) Contains(at time.Time) bool {
	return !at.Before(h.ValidFrom) && at.Before(h.ValidTo)
}

// AttributeState is a group's attribute bundle as observed at some instant.
type AttributeState struct {
	GroupID GroupID
	Attributes
}

// State projects the record onto its attribute state.
func (r *CurrentRecord) State() *AttributeState {
	return &AttributeState{GroupID: r.GroupID, Attributes: r.Attributes}
}

// State projects the record onto its attribute state.
func (h *HistoryRecord) State() *AttributeState {
	return &AttributeState{GroupID: h.GroupID, Attributes: h.Attributes}
}

// Retire builds the history row closing prev at validTo. The superseding
// record's change set takes precedence over the retired one's.
func Retire(prev *CurrentRecord, next *CurrentRecord) *HistoryRecord {
	changeSetID := next.ChangeSetID
	if changeSetID == uuid.Nil {
		changeSetID = prev.ChangeSetID
	}
	return &HistoryRecord{
		GroupID:     prev.GroupID,
		ChangeSetID: changeSetID,
		Attributes:  prev.Attributes.Clone(),
		ValidFrom:   prev.CreatedAt,
		ValidTo:     next.CreatedAt,
	}
}

// Clone deep-copies the optional fields.
func (a Attributes) Clone() Attributes {
	out := a
	out.MiddleName = cloneString(a.MiddleName)
	out.Phone = cloneString(a.Phone)
	out.Email = cloneString(a.Email)
	if a.BirthDate != nil {
		bd := *a.BirthDate
		out.BirthDate = &bd
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
