package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "personvault/pkg/domain-errors"
)

const maxChangeSetFieldLength = 500

// ChangeSet groups one or more writes under an author and a reason.
// Immutable once created.
type ChangeSet struct {
	ID        uuid.UUID
	Author    string
	Reason    string
	CreatedAt time.Time
}

// ChangeSetInput is what Apply callers pass. A non-nil ID references an
// existing change set; otherwise a new one is created from Author/Reason.
type ChangeSetInput struct {
	ID     uuid.UUID `json:"id"`
	Author string    `json:"author"`
	Reason string    `json:"reason"`
}

// IsReference reports whether the input points at an existing change set.
func (c *ChangeSetInput) IsReference() bool {
	return c != nil && c.ID != uuid.Nil
}

// NewChangeSet builds a change set, falling back to the given defaults for
// blank author or reason.
func NewChangeSet(author, reason, defaultAuthor, defaultReason string, now time.Time) (*ChangeSet, error) {
	author = strings.TrimSpace(author)
	reason = strings.TrimSpace(reason)
	if author == "" {
		author = defaultAuthor
	}
	if reason == "" {
		reason = defaultReason
	}
	if len(author) > maxChangeSetFieldLength || len(reason) > maxChangeSetFieldLength {
		return nil, dErrors.New(dErrors.CodeValidation, "author and reason must be 500 characters or less")
	}
	return &ChangeSet{
		ID:        uuid.New(),
		Author:    author,
		Reason:    reason,
		CreatedAt: now,
	}, nil
}
