package create

import (
	"booking-service/api"
	"booking-service/pkg/response"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

type stubCreator struct {
	gotPractitioner string
	err             error
}

func (s *stubCreator) CreateException(_ context.Context, practitionerID string, req *api.ExceptionRequest) (*api.ExceptionResponse, error) {
	s.gotPractitioner = practitionerID
	if s.err != nil {
		return nil, s.err
	}
	return &api.ExceptionResponse{ID: "e1", PractitionerID: practitionerID, Date: req.Date, IsUnavailable: req.IsUnavailable}, nil
}

func post(t *testing.T, creator ExceptionCreator, body string) *httptest.ResponseRecorder {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	router.Post("/practitioners/{id}/exceptions", New(log, creator))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/practitioners/p1/exceptions", strings.NewReader(body)))
	return rec
}

func TestCreateException(t *testing.T) {
	creator := &stubCreator{}

	rec := post(t, creator, `{"date":"2030-01-07","is_unavailable":true}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if creator.gotPractitioner != "p1" {
		t.Errorf("expected practitioner p1, got %q", creator.gotPractitioner)
	}

	var body Response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Exception == nil || !body.Exception.IsUnavailable {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestCreateException_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  response.ErrCode
	}{
		{name: "date already has an exception", err: response.ErrConflict, wantCode: http.StatusConflict, wantErr: response.CONFLICT},
		{name: "no effect", err: response.ErrBadRequest, wantCode: http.StatusBadRequest, wantErr: response.BAD_REQUEST},
		{name: "unknown practitioner", err: response.ErrNotFound, wantCode: http.StatusNotFound, wantErr: response.NOT_FOUND},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, &stubCreator{err: fmt.Errorf("service.CreateException: %w", tt.err)}, `{"date":"2030-01-07"}`)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}

			var body response.Response
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != string(tt.wantErr) {
				t.Errorf("expected code %s, got %s", tt.wantErr, body.Code)
			}
		})
	}
}
