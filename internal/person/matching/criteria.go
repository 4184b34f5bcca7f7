// Package matching holds the deterministic predicate deciding whether a
// snapshot belongs to an existing identity group.
//
// A live record matches a snapshot when gender, first name and middle name
// are equal (absent middle name equals only absent), the surname is equal for
// male snapshots, and at least one contact channel agrees: address always,
// phone and email only when the snapshot supplies them.
//
// The surname asymmetry mirrors surname changes on marriage in the source
// naming convention. It is a domain rule, not a general one.
package matching

import (
	"hash/fnv"

	"personvault/internal/person/models"
)

// Criteria is the matching predicate for one normalised snapshot.
type Criteria struct {
	Gender     models.Gender
	FirstName  string
	MiddleName *string
	// LastName is set only when the surname must match (male snapshots).
	LastName *string
	Address  string
	// Phone and Email are set only when the snapshot supplies them.
	Phone *string
	Email *string
}

// FromSnapshot builds the predicate for a normalised, validated snapshot.
func FromSnapshot(s models.Snapshot) Criteria {
	c := Criteria{
		Gender:     s.Gender,
		FirstName:  s.FirstName,
		MiddleName: s.MiddleName,
		Address:    s.Address,
	}
	if s.Gender.IsMale() {
		last := s.LastName
		c.LastName = &last
	}
	if s.Phone != nil && *s.Phone != "" {
		c.Phone = s.Phone
	}
	if s.Email != nil && *s.Email != "" {
		c.Email = s.Email
	}
	return c
}

// Matches evaluates the predicate against a candidate record. Retired
// records never match.
func (c Criteria) Matches(r *models.CurrentRecord) bool {
	if r == nil || !r.IsCurrent {
		return false
	}
	if r.Gender != c.Gender || r.FirstName != c.FirstName {
		return false
	}
	if !equalOptional(r.MiddleName, c.MiddleName) {
		return false
	}
	if c.LastName != nil && r.LastName != *c.LastName {
		return false
	}
	return c.contactMatches(r)
}

func (c Criteria) contactMatches(r *models.CurrentRecord) bool {
	if r.Address == c.Address {
		return true
	}
	if c.Phone != nil && r.Phone != nil && *r.Phone == *c.Phone {
		return true
	}
	return c.Email != nil && r.Email != nil && *r.Email == *c.Email
}

// LockKey hashes the fields every candidate must share with the snapshot.
// Two snapshots that could resolve to the same group always produce the same
// key, so holding the key serialises their resolve-then-write sequences.
func (c Criteria) LockKey() int64 {
	h := fnv.New64a()
	write := func(s string) {
		_, _ = h.Write([]byte(s))
		_, _ = h.Write([]byte{0})
	}
	write(string(c.Gender))
	write(c.FirstName)
	if c.MiddleName != nil {
		write("1" + *c.MiddleName)
	} else {
		write("0")
	}
	if c.LastName != nil {
		write(*c.LastName)
	}
	return int64(h.Sum64())
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
