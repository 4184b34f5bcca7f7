package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"personvault/internal/person/handler/mocks"
	"personvault/internal/person/models"
	"personvault/internal/platform/middleware"
	dErrors "personvault/pkg/domain-errors"
	"personvault/pkg/testutil"
)

// =============================================================================
// Person Handler Suite
// =============================================================================
// Covers wire conversion, status mapping and the error envelope. Service
// behaviour is mocked.

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.router = chi.NewRouter()
	New(s.service, nil, nil).Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func strPtr(v string) *string { return &v }

func (s *HandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, req)
}

var (
	changeSetID = uuid.MustParse("7f1c6f0e-2b7a-4d55-9b59-3e1f5b8a0c11")
	createdAt   = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
)

func annaRecord() *models.CurrentRecord {
	bd := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	return &models.CurrentRecord{
		ID:          11,
		GroupID:     3,
		ChangeSetID: changeSetID,
		Attributes: models.Attributes{
			LastName:  "Петрова",
			FirstName: "Анна",
			BirthDate: &bd,
			Gender:    models.GenderFemale,
			Address:   "Москва, ул. Ленина 1",
			Phone:     strPtr("+79001234567"),
		},
		CreatedAt: createdAt,
		IsCurrent: true,
	}
}

func (s *HandlerSuite) TestApply() {
	s.Run("converts the snapshot and returns the current record", func() {
		s.service.EXPECT().Apply(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, snap models.Snapshot, input *models.ChangeSetInput) (*models.CurrentRecord, error) {
				s.Equal("Петрова", snap.LastName)
				s.Equal(models.Gender("Ж"), snap.Gender)
				s.Require().NotNil(snap.BirthDate)
				s.Equal(time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC), *snap.BirthDate)
				s.Require().NotNil(input)
				s.Equal(changeSetID, input.ID)
				return annaRecord(), nil
			})

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/persons", map[string]any{
			"last_name":  "Петрова",
			"first_name": "Анна",
			"birth_date": "1990-05-17",
			"gender":     "Ж",
			"address":    "Москва, ул. Ленина 1",
			"phone":      "+79001234567",
			"change_set": map[string]any{"id": changeSetID.String()},
		}))

		s.Equal(http.StatusCreated, rr.Code)
		resp := testutil.UnmarshalResponse[CurrentRecordResponse](s.T(), rr)
		s.Equal(int64(3), resp.GroupID)
		s.Equal(int64(11), resp.ID)
		s.Equal(changeSetID.String(), resp.ChangeSetID)
		s.Require().NotNil(resp.BirthDate)
		s.Equal("1990-05-17", *resp.BirthDate)
		s.Nil(resp.MiddleName)
		s.True(resp.IsCurrent)
		s.True(createdAt.Equal(resp.CreatedAt))
	})

	s.Run("no change set yields nil input", func() {
		s.service.EXPECT().Apply(gomock.Any(), gomock.Any(), gomock.Nil()).Return(annaRecord(), nil)

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/persons", SnapshotRequest{
			LastName: "Петрова", FirstName: "Анна", Gender: "Ж",
		}))
		s.Equal(http.StatusCreated, rr.Code)
	})

	s.Run("author and reason are forwarded", func() {
		s.service.EXPECT().Apply(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, _ models.Snapshot, input *models.ChangeSetInput) (*models.CurrentRecord, error) {
				s.Require().NotNil(input)
				s.False(input.IsReference())
				s.Equal("registrar", input.Author)
				s.Equal("marriage", input.Reason)
				return annaRecord(), nil
			})

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/persons", ApplyRequest{
			SnapshotRequest: SnapshotRequest{LastName: "Петрова", FirstName: "Анна", Gender: "Ж"},
			ChangeSet:       &ChangeSetRequest{Author: "registrar", Reason: "marriage"},
		}))
		s.Equal(http.StatusCreated, rr.Code)
	})

	s.Run("malformed body is a bad request", func() {
		rr := s.do(testutil.NewRawRequest(http.MethodPost, "/persons", `{"last_name":`))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("malformed birth date never reaches the service", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/persons", map[string]any{
			"last_name": "Петрова", "first_name": "Анна", "gender": "Ж", "birth_date": "17.05.1990",
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("service errors map onto statuses", func() {
		cases := []struct {
			name   string
			err    error
			status int
			code   string
		}{
			{"validation", dErrors.New(dErrors.CodeValidation, "gender is required"), http.StatusBadRequest, "validation_error"},
			{"missing change set", dErrors.New(dErrors.CodeNotFound, "change set not found"), http.StatusNotFound, "not_found"},
			{"write conflict", dErrors.New(dErrors.CodeWriteConflict, "concurrent write"), http.StatusConflict, "write_conflict"},
			{"unavailable", dErrors.New(dErrors.CodeUnavailable, "store unavailable"), http.StatusServiceUnavailable, "store_unavailable"},
			{"uncoded", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
		}
		for _, tc := range cases {
			s.Run(tc.name, func() {
				s.service.EXPECT().Apply(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tc.err)

				rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/persons", SnapshotRequest{
					LastName: "Петрова", FirstName: "Анна",
				}))
				testutil.AssertStatusAndError(s.T(), rr, tc.status, tc.code)
			})
		}
	})

	s.Run("internal errors hide their description", func() {
		s.service.EXPECT().Apply(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInternal, "pq: relation persons does not exist"))

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/persons", SnapshotRequest{
			LastName: "Петрова", FirstName: "Анна", Gender: "Ж",
		}))
		body := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Equal("internal_error", body["error"])
		s.NotContains(body, "error_description")
	})
}

func (s *HandlerSuite) TestResolve() {
	s.Run("matched snapshot returns its group", func() {
		s.service.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(models.GroupID(7), true, nil)

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/persons/resolve", SnapshotRequest{
			LastName: "Иванов", FirstName: "Иван", Gender: "М", Address: "Казань",
		}))
		s.Equal(http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[ResolveResponse](s.T(), rr)
		s.True(resp.Matched)
		s.Require().NotNil(resp.GroupID)
		s.Equal(int64(7), *resp.GroupID)
	})

	s.Run("no match returns a null group", func() {
		s.service.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(models.GroupID(0), false, nil)

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/persons/resolve", SnapshotRequest{
			LastName: "Иванов", FirstName: "Иван", Gender: "М",
		}))
		s.Equal(http.StatusOK, rr.Code)
		testutil.AssertJSONValue(s.T(), rr, "group_id", nil)
		testutil.AssertJSONValue(s.T(), rr, "matched", false)
	})

	s.Run("validation error", func() {
		s.service.EXPECT().Resolve(gomock.Any(), gomock.Any()).
			Return(models.GroupID(0), false, dErrors.New(dErrors.CodeValidation, "first_name is required"))

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/persons/resolve", SnapshotRequest{Gender: "М"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})
}

func (s *HandlerSuite) TestSearch() {
	s.Run("query parameters become the filter", func() {
		s.service.EXPECT().SearchCurrent(gomock.Any(), models.SearchFilter{
			LastName: "Иванов",
			Phone:    "+79001234567",
			Limit:    10,
			Offset:   20,
		}).Return([]*models.AttributeState{annaRecord().State()}, nil)

		rr := s.do(httptest.NewRequest(http.MethodGet,
			"/persons?last_name=%D0%98%D0%B2%D0%B0%D0%BD%D0%BE%D0%B2&phone=%2B79001234567&limit=10&offset=20", nil))
		s.Equal(http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[SearchResponse](s.T(), rr)
		s.Require().Len(resp.Persons, 1)
		s.Equal(int64(3), resp.Persons[0].GroupID)
		s.Equal("Петрова", resp.Persons[0].LastName)
	})

	s.Run("empty result is an empty list", func() {
		s.service.EXPECT().SearchCurrent(gomock.Any(), gomock.Any()).Return(nil, nil)

		rr := s.do(httptest.NewRequest(http.MethodGet, "/persons", nil))
		s.Equal(http.StatusOK, rr.Code)
		s.JSONEq(`{"persons":[]}`, rr.Body.String())
	})

	s.Run("non-numeric limit", func() {
		rr := s.do(httptest.NewRequest(http.MethodGet, "/persons?limit=ten", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("negative offset is rejected by the service", func() {
		s.service.EXPECT().SearchCurrent(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeValidation, "offset must not be negative"))

		rr := s.do(httptest.NewRequest(http.MethodGet, "/persons?offset=-1", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})
}

func (s *HandlerSuite) TestStateAt() {
	at := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)

	s.Run("returns the state at the instant", func() {
		s.service.EXPECT().StateAt(gomock.Any(), models.GroupID(3), gomock.Any()).DoAndReturn(
			func(_ context.Context, _ models.GroupID, got time.Time) (*models.AttributeState, error) {
				s.True(at.Equal(got))
				return annaRecord().State(), nil
			})

		rr := s.do(httptest.NewRequest(http.MethodGet, "/persons/3/as-of?at=2024-03-15T12:30:00Z", nil))
		s.Equal(http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[StateResponse](s.T(), rr)
		s.Equal(int64(3), resp.GroupID)
		s.Equal("Ж", resp.Gender)
	})

	s.Run("offset timestamps are accepted", func() {
		s.service.EXPECT().StateAt(gomock.Any(), models.GroupID(3), gomock.Any()).DoAndReturn(
			func(_ context.Context, _ models.GroupID, got time.Time) (*models.AttributeState, error) {
				s.True(at.Equal(got))
				return annaRecord().State(), nil
			})

		rr := s.do(httptest.NewRequest(http.MethodGet, "/persons/3/as-of?at=2024-03-15T15:30:00%2B03:00", nil))
		s.Equal(http.StatusOK, rr.Code)
	})

	s.Run("no state is not found", func() {
		s.service.EXPECT().StateAt(gomock.Any(), models.GroupID(3), gomock.Any()).Return(nil, nil)

		rr := s.do(httptest.NewRequest(http.MethodGet, "/persons/3/as-of?at=2024-03-15T12:30:00Z", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("missing instant", func() {
		rr := s.do(httptest.NewRequest(http.MethodGet, "/persons/3/as-of", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("malformed instant", func() {
		rr := s.do(httptest.NewRequest(http.MethodGet, "/persons/3/as-of?at=yesterday", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("malformed group id", func() {
		rr := s.do(httptest.NewRequest(http.MethodGet, "/persons/abc/as-of?at=2024-03-15T12:30:00Z", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("store timeout", func() {
		s.service.EXPECT().StateAt(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeTimeout, "query timed out"))

		rr := s.do(httptest.NewRequest(http.MethodGet, "/persons/3/as-of?at=2024-03-15T12:30:00Z", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusGatewayTimeout, "timeout")
	})
}

func (s *HandlerSuite) TestHistory() {
	s.Run("lists retired states", func() {
		validTo := createdAt.Add(24 * time.Hour)
		s.service.EXPECT().HistoryOf(gomock.Any(), models.GroupID(3)).Return([]*models.HistoryRecord{
			{
				ID:          1,
				GroupID:     3,
				ChangeSetID: changeSetID,
				Attributes:  models.Attributes{LastName: "Смирнова", FirstName: "Анна", Gender: models.GenderFemale},
				ValidFrom:   createdAt,
				ValidTo:     validTo,
			},
		}, nil)

		rr := s.do(httptest.NewRequest(http.MethodGet, "/persons/3/history", nil))
		s.Equal(http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[HistoryResponse](s.T(), rr)
		s.Equal(int64(3), resp.GroupID)
		s.Require().Len(resp.History, 1)
		s.Equal("Смирнова", resp.History[0].LastName)
		s.True(createdAt.Equal(resp.History[0].ValidFrom))
		s.True(validTo.Equal(resp.History[0].ValidTo))
	})

	s.Run("unknown group has empty history", func() {
		s.service.EXPECT().HistoryOf(gomock.Any(), models.GroupID(99)).Return(nil, nil)

		rr := s.do(httptest.NewRequest(http.MethodGet, "/persons/99/history", nil))
		s.Equal(http.StatusOK, rr.Code)
		s.JSONEq(`{"group_id":99,"history":[]}`, rr.Body.String())
	})

	s.Run("zero group id", func() {
		rr := s.do(httptest.NewRequest(http.MethodGet, "/persons/0/history", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})
}

func (s *HandlerSuite) TestCreateChangeSet() {
	s.Run("creates a change set", func() {
		s.service.EXPECT().CreateChangeSet(gomock.Any(), "registrar", "bulk import").Return(&models.ChangeSet{
			ID:        changeSetID,
			Author:    "registrar",
			Reason:    "bulk import",
			CreatedAt: createdAt,
		}, nil)

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/change-sets", ChangeSetRequest{
			Author: "registrar",
			Reason: "bulk import",
		}))
		s.Equal(http.StatusCreated, rr.Code)
		resp := testutil.UnmarshalResponse[ChangeSetResponse](s.T(), rr)
		s.Equal(changeSetID.String(), resp.ID)
		s.Equal("registrar", resp.Author)
	})

	s.Run("oversized fields", func() {
		s.service.EXPECT().CreateChangeSet(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeValidation, "author and reason must be 500 characters or less"))

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/change-sets", ChangeSetRequest{Author: "x"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})
}

func (s *HandlerSuite) TestRequestIDIsEchoed() {
	s.service.EXPECT().HistoryOf(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ models.GroupID) ([]*models.HistoryRecord, error) {
			s.Equal("req-123", middleware.GetRequestID(ctx))
			return nil, nil
		})

	req := httptest.NewRequest(http.MethodGet, "/persons/1/history", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	rr := s.do(req)
	s.Equal("req-123", rr.Header().Get(middleware.RequestIDHeader))
}
