package handler

import (
	"time"

	"personvault/internal/person/models"
)

type AttributesResponse struct {
	LastName   string  `json:"last_name"`
	FirstName  string  `json:"first_name"`
	MiddleName *string `json:"middle_name"`
	BirthDate  *string `json:"birth_date"`
	Gender     string  `json:"gender"`
	Address    string  `json:"address"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
}

type CurrentRecordResponse struct {
	ID          int64  `json:"id"`
	GroupID     int64  `json:"group_id"`
	ChangeSetID string `json:"change_set_id"`
	AttributesResponse
	CreatedAt time.Time `json:"created_at"`
	IsCurrent bool      `json:"is_current"`
}

type HistoryRecordResponse struct {
	ID          int64  `json:"id"`
	GroupID     int64  `json:"group_id"`
	ChangeSetID string `json:"change_set_id"`
	AttributesResponse
	ValidFrom time.Time `json:"valid_from"`
	ValidTo   time.Time `json:"valid_to"`
}

type StateResponse struct {
	GroupID int64 `json:"group_id"`
	AttributesResponse
}

// ResolveResponse carries a null group_id when nothing matched.
type ResolveResponse struct {
	GroupID *int64 `json:"group_id"`
	Matched bool   `json:"matched"`
}

type SearchResponse struct {
	Persons []StateResponse `json:"persons"`
}

type HistoryResponse struct {
	GroupID int64                   `json:"group_id"`
	History []HistoryRecordResponse `json:"history"`
}

type ChangeSetResponse struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func toAttributesResponse(a models.Attributes) AttributesResponse {
	resp := AttributesResponse{
		LastName:   a.LastName,
		FirstName:  a.FirstName,
		MiddleName: a.MiddleName,
		Gender:     string(a.Gender),
		Address:    a.Address,
		Phone:      a.Phone,
		Email:      a.Email,
	}
	if a.BirthDate != nil {
		bd := a.BirthDate.Format(dateLayout)
		resp.BirthDate = &bd
	}
	return resp
}

func toCurrentRecordResponse(rec *models.CurrentRecord) CurrentRecordResponse {
	return CurrentRecordResponse{
		ID:                 int64(rec.ID),
		GroupID:            int64(rec.GroupID),
		ChangeSetID:        rec.ChangeSetID.String(),
		AttributesResponse: toAttributesResponse(rec.Attributes),
		CreatedAt:          rec.CreatedAt.UTC(),
		IsCurrent:          rec.IsCurrent,
	}
}

func toHistoryRecordResponse(rec *models.HistoryRecord) HistoryRecordResponse {
	return HistoryRecordResponse{
		ID:                 rec.ID,
		GroupID:            int64(rec.GroupID),
		ChangeSetID:        rec.ChangeSetID.String(),
		AttributesResponse: toAttributesResponse(rec.Attributes),
		ValidFrom:          rec.ValidFrom.UTC(),
		ValidTo:            rec.ValidTo.UTC(),
	}
}

func toStateResponse(st *models.AttributeState) StateResponse {
	return StateResponse{
		GroupID:            int64(st.GroupID),
		AttributesResponse: toAttributesResponse(st.Attributes),
	}
}

func toChangeSetResponse(cs *models.ChangeSet) ChangeSetResponse {
	return ChangeSetResponse{
		ID:        cs.ID.String(),
		Author:    cs.Author,
		Reason:    cs.Reason,
		CreatedAt: cs.CreatedAt.UTC(),
	}
}
