package handler

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"personvault/internal/person/models"
	dErrors "personvault/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

// SnapshotRequest is the wire form of a person attribute snapshot.
type SnapshotRequest struct {
	LastName   string  `json:"last_name"`
	FirstName  string  `json:"first_name"`
	MiddleName *string `json:"middle_name,omitempty"`
	BirthDate  *string `json:"birth_date,omitempty"`
	Gender     string  `json:"gender"`
	Address    string  `json:"address"`
	Phone      *string `json:"phone,omitempty"`
	Email      *string `json:"email,omitempty"`
}

// Snapshot converts the request. Only the birth date format is checked here;
// the service owns attribute validation.
func (r *SnapshotRequest) Snapshot() (models.Snapshot, error) {
	snap := models.Snapshot{
		LastName:   r.LastName,
		FirstName:  r.FirstName,
		MiddleName: r.MiddleName,
		Gender:     models.Gender(r.Gender),
		Address:    r.Address,
		Phone:      r.Phone,
		Email:      r.Email,
	}
	if r.BirthDate != nil && strings.TrimSpace(*r.BirthDate) != "" {
		bd, err := time.Parse(dateLayout, strings.TrimSpace(*r.BirthDate))
		if err != nil {
			return models.Snapshot{}, dErrors.New(dErrors.CodeValidation, "birth_date must be formatted as YYYY-MM-DD")
		}
		snap.BirthDate = &bd
	}
	return snap, nil
}

// ChangeSetRequest creates a change set, or references one when ID is set.
type ChangeSetRequest struct {
	ID     *uuid.UUID `json:"id,omitempty"`
	Author string     `json:"author"`
	Reason string     `json:"reason"`
}

// ApplyRequest is a snapshot plus optional change set attribution.
type ApplyRequest struct {
	SnapshotRequest
	ChangeSet *ChangeSetRequest `json:"change_set,omitempty"`
}

func (r *ApplyRequest) ChangeSetInput() *models.ChangeSetInput {
	if r.ChangeSet == nil {
		return nil
	}
	input := &models.ChangeSetInput{
		Author: r.ChangeSet.Author,
		Reason: r.ChangeSet.Reason,
	}
	if r.ChangeSet.ID != nil {
		input.ID = *r.ChangeSet.ID
	}
	return input
}
