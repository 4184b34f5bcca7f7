// Package outbox publishes person change events through the transactional
// outbox pattern: events are written in the same transaction as the change
// they describe and relayed to Kafka by a worker.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"personvault/internal/person/models"
)

const (
	AggregateTypeGroup  = "person_group"
	EventTypeApplied    = "person.applied"
	defaultPublishBatch = 100
	defaultPollInterval = time.Second
)

// Event is one outbox row.
type Event struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// AppliedPayload is the JSON body of a person.applied event.
type AppliedPayload struct {
	GroupID         int64             `json:"group_id"`
	RecordID        int64             `json:"record_id"`
	ChangeSetID     string            `json:"change_set_id"`
	NewGroup        bool              `json:"new_group"`
	RetiredRecordID *int64            `json:"retired_record_id,omitempty"`
	CreatedAt       string            `json:"created_at"`
	Attributes      models.Attributes `json:"attributes"`
}

// NewAppliedEvent describes a committed Apply. retired is nil when the group
// had no previous current record.
func NewAppliedEvent(rec *models.CurrentRecord, newGroup bool, retired *models.CurrentRecord) (Event, error) {
	payload := AppliedPayload{
		GroupID:     int64(rec.GroupID),
		RecordID:    int64(rec.ID),
		ChangeSetID: rec.ChangeSetID.String(),
		NewGroup:    newGroup,
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		Attributes:  rec.Attributes,
	}
	if retired != nil {
		id := int64(retired.ID)
		payload.RetiredRecordID = &id
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal applied payload: %w", err)
	}
	return Event{
		ID:            uuid.New(),
		AggregateType: AggregateTypeGroup,
		AggregateID:   rec.GroupID.String(),
		EventType:     EventTypeApplied,
		Payload:       body,
		CreatedAt:     rec.CreatedAt,
	}, nil
}
