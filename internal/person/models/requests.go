package models

import (
	"strings"
	"time"
	"unicode/utf8"

	dErrors "personvault/pkg/domain-errors"
)

const (
	maxNameLength    = 255
	maxContactLength = 255
	maxAddressLength = 1000

	DefaultSearchLimit = 100
)

// Normalize trims surrounding whitespace, canonicalises gender and turns
// blank optional values into absent ones. Case is preserved: matching is
// case-sensitive on stored values.
func (a *Attributes) Normalize() {
	if a == nil {
		return
	}
	a.LastName = strings.TrimSpace(a.LastName)
	a.FirstName = strings.TrimSpace(a.FirstName)
	a.MiddleName = trimOptional(a.MiddleName)
	a.Gender = NormalizeGender(string(a.Gender))
	a.Address = strings.TrimSpace(a.Address)
	a.Phone = trimOptional(a.Phone)
	a.Email = trimOptional(a.Email)
	if a.BirthDate != nil {
		bd := a.BirthDate.UTC()
		day := time.Date(bd.Year(), bd.Month(), bd.Day(), 0, 0, 0, 0, time.UTC)
		a.BirthDate = &day
	}
}

// Validate follows the order: Required -> Size -> Semantic.
func (a *Attributes) Validate() error {
	if a == nil {
		return dErrors.New(dErrors.CodeBadRequest, "snapshot is required")
	}
	if a.Gender == "" {
		return dErrors.New(dErrors.CodeValidation, "gender is required")
	}
	if a.FirstName == "" {
		return dErrors.New(dErrors.CodeValidation, "first_name is required")
	}
	if a.LastName == "" {
		return dErrors.New(dErrors.CodeValidation, "last_name is required")
	}

	if tooLong(a.LastName, maxNameLength) || tooLong(a.FirstName, maxNameLength) || tooLongPtr(a.MiddleName, maxNameLength) {
		return dErrors.New(dErrors.CodeValidation, "names must be 255 characters or less")
	}
	if tooLong(a.Address, maxAddressLength) {
		return dErrors.New(dErrors.CodeValidation, "address must be 1000 characters or less")
	}
	if tooLongPtr(a.Phone, maxContactLength) || tooLongPtr(a.Email, maxContactLength) {
		return dErrors.New(dErrors.CodeValidation, "phone and email must be 255 characters or less")
	}

	if !a.Gender.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "gender must be 'М' or 'Ж'")
	}
	if a.Email != nil && !strings.Contains(*a.Email, "@") {
		return dErrors.New(dErrors.CodeValidation, "email must contain '@'")
	}
	return nil
}

// SearchFilter selects current records by exact match on any subset of
// fields. Empty fields do not filter.
type SearchFilter struct {
	LastName   string
	FirstName  string
	MiddleName string
	Address    string
	Phone      string
	Email      string
	Limit      int
	Offset     int
}

func (f *SearchFilter) Normalize(maxLimit int) {
	if f == nil {
		return
	}
	f.LastName = strings.TrimSpace(f.LastName)
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.MiddleName = strings.TrimSpace(f.MiddleName)
	f.Address = strings.TrimSpace(f.Address)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Email = strings.TrimSpace(f.Email)
	if f.Limit <= 0 {
		f.Limit = DefaultSearchLimit
	}
	if maxLimit > 0 && f.Limit > maxLimit {
		f.Limit = maxLimit
	}
}

func (f *SearchFilter) Validate() error {
	if f == nil {
		return dErrors.New(dErrors.CodeBadRequest, "search filter is required")
	}
	if f.Offset < 0 {
		return dErrors.New(dErrors.CodeValidation, "offset must not be negative")
	}
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func tooLong(s string, limit int) bool {
	return utf8.RuneCountInString(s) > limit
}

func tooLongPtr(s *string, limit int) bool {
	return s != nil && tooLong(*s, limit)
}
