package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openmunicipal/portal/internal/model"
)

func newRequestRow(r *model.ServiceRequest) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = r.ID
		*(dest[1].(*string)) = r.Reference
		*(dest[2].(*string)) = r.Category
		*(dest[3].(*string)) = r.Title
		*(dest[4].(*string)) = r.Description
		*(dest[5].(*string)) = r.Location
		*(dest[6].(*string)) = r.SubmitterName
		*(dest[7].(*string)) = r.SubmitterEmail
		*(dest[8].(**string)) = r.SubmitterPhone
		*(dest[9].(*string)) = r.Status
		*(dest[10].(**string)) = r.Department
		*(dest[11].(**string)) = r.ResolutionNote
		*(dest[12].(**time.Time)) = r.ResolvedAt
		*(dest[13].(*time.Time)) = r.CreatedAt
		*(dest[14].(*time.Time)) = r.UpdatedAt
		return nil
	}}
}

// ---------- Create ----------

func TestServiceRequestService_Create_Success(t *testing.T) {
	db := &mockDB{}
	sender := &fakeSender{}
	svc := NewServiceRequestService(db, sender)
	ctx := context.Background()

	now := time.Now()
	req := &model.ServiceRequest{
		ID:             "req-1",
		Reference:      "REQ-ABCD2345",
		Category:       model.CategoryRoads,
		Title:          "Pothole on Elm Street",
		Description:    "Deep pothole near the crosswalk.",
		Location:       "Elm St & 4th Ave",
		SubmitterName:  "Pat Doe",
		SubmitterEmail: "pat@example.com",
		Status:         model.RequestSubmitted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)

	err := svc.Create(ctx, req)
	require.NoError(t, err)
	db.AssertExpectations(t)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "pat@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Subject, "REQ-ABCD2345")
}

func TestServiceRequestService_Create_InsertError(t *testing.T) {
	db := &mockDB{}
	sender := &fakeSender{}
	svc := NewServiceRequestService(db, sender)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("db error"))

	err := svc.Create(ctx, &model.ServiceRequest{ID: "req-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert service request")
	assert.Empty(t, sender.sent)
	db.AssertExpectations(t)
}

func TestServiceRequestService_Create_DeliveryFailureIgnored(t *testing.T) {
	db := &mockDB{}
	sender := &fakeSender{sendErr: errors.New("smtp down")}
	svc := NewServiceRequestService(db, sender)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)

	err := svc.Create(ctx, &model.ServiceRequest{ID: "req-1", SubmitterEmail: "pat@example.com"})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

// ---------- GetByReference ----------

func TestServiceRequestService_GetByReference_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewServiceRequestService(db, nil)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond)
	want := &model.ServiceRequest{
		ID:             "req-1",
		Reference:      "REQ-ABCD2345",
		Category:       model.CategoryRoads,
		Title:          "Pothole on Elm Street",
		Status:         model.RequestTriaged,
		SubmitterName:  "Pat Doe",
		SubmitterEmail: "pat@example.com",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(newRequestRow(want))

	got, err := svc.GetByReference(ctx, "REQ-ABCD2345")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Reference, got.Reference)
	assert.Equal(t, model.RequestTriaged, got.Status)
	db.AssertExpectations(t)
}

func TestServiceRequestService_GetByID_NotFound(t *testing.T) {
	db := &mockDB{}
	svc := NewServiceRequestService(db, nil)
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		return errors.New("no rows in result set")
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	got, err := svc.GetByID(ctx, "nonexistent")
	require.Error(t, err)
	assert.Nil(t, got)
	db.AssertExpectations(t)
}

// ---------- List ----------

func TestServiceRequestService_List_PaginationAndFilters(t *testing.T) {
	db := &mockDB{}
	svc := NewServiceRequestService(db, nil)
	ctx := context.Background()

	now := time.Now()
	rows := newMockRows(
		func(dest ...any) error {
			*(dest[0].(*string)) = "req-1"
			*(dest[1].(*string)) = "REQ-AAAA2222"
			*(dest[2].(*string)) = model.CategoryRoads
			*(dest[3].(*string)) = "First"
			*(dest[9].(*string)) = model.RequestSubmitted
			*(dest[13].(*time.Time)) = now
			*(dest[14].(*time.Time)) = now
			return nil
		},
		func(dest ...any) error {
			*(dest[0].(*string)) = "req-2"
			*(dest[1].(*string)) = "REQ-BBBB3333"
			*(dest[2].(*string)) = model.CategoryRoads
			*(dest[3].(*string)) = "Second"
			*(dest[9].(*string)) = model.RequestSubmitted
			*(dest[13].(*time.Time)) = now
			*(dest[14].(*time.Time)) = now
			return nil
		},
	)

	var capturedArgs []any
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			capturedArgs = args.Get(2).([]any)
		}).
		Return(rows, nil)

	requests, hasMore, err := svc.List(ctx, 1, "req-0", model.RequestSubmitted, model.CategoryRoads)
	require.NoError(t, err)
	assert.True(t, hasMore)
	require.Len(t, requests, 1)
	assert.Equal(t, "req-1", requests[0].ID)

	// status, category, cursor, limit+1
	require.Len(t, capturedArgs, 4)
	assert.Equal(t, model.RequestSubmitted, capturedArgs[0])
	assert.Equal(t, model.CategoryRoads, capturedArgs[1])
	assert.Equal(t, "req-0", capturedArgs[2])
	assert.Equal(t, 2, capturedArgs[3])
	db.AssertExpectations(t)
}

func TestServiceRequestService_List_Empty(t *testing.T) {
	db := &mockDB{}
	svc := NewServiceRequestService(db, nil)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(newEmptyMockRows(), nil)

	requests, hasMore, err := svc.List(ctx, 20, "", "", "")
	require.NoError(t, err)
	assert.False(t, hasMore)
	assert.Empty(t, requests)
	db.AssertExpectations(t)
}

// ---------- UpdateStatus ----------

func TestServiceRequestService_UpdateStatus_ValidTransition(t *testing.T) {
	db := &mockDB{}
	sender := &fakeSender{}
	svc := NewServiceRequestService(db, sender)
	ctx := context.Background()

	current := &model.ServiceRequest{
		ID:             "req-1",
		Reference:      "REQ-ABCD2345",
		Status:         model.RequestInProgress,
		SubmitterEmail: "pat@example.com",
	}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(newRequestRow(current))
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)

	note := "Filled and resurfaced."
	err := svc.UpdateStatus(ctx, "req-1", model.RequestResolved, nil, &note)
	require.NoError(t, err)
	db.AssertExpectations(t)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Body, model.RequestResolved)
}

func TestServiceRequestService_UpdateStatus_InvalidTransition(t *testing.T) {
	db := &mockDB{}
	sender := &fakeSender{}
	svc := NewServiceRequestService(db, sender)
	ctx := context.Background()

	current := &model.ServiceRequest{ID: "req-1", Status: model.RequestResolved}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(newRequestRow(current))

	err := svc.UpdateStatus(ctx, "req-1", model.RequestSubmitted, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status transition")
	assert.Empty(t, sender.sent)
	db.AssertExpectations(t)
}

// ---------- Notes ----------

func TestServiceRequestService_AddNote_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewServiceRequestService(db, nil)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)

	err := svc.AddNote(ctx, &model.ServiceRequestNote{
		ID:        "note-1",
		RequestID: "req-1",
		Author:    "public-works",
		Body:      "Crew dispatched.",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestServiceRequestService_ListNotes_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewServiceRequestService(db, nil)
	ctx := context.Background()

	now := time.Now()
	rows := newMockRows(func(dest ...any) error {
		*(dest[0].(*string)) = "note-1"
		*(dest[1].(*string)) = "req-1"
		*(dest[2].(*string)) = "public-works"
		*(dest[3].(*string)) = "Crew dispatched."
		*(dest[4].(*time.Time)) = now
		return nil
	})
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	notes, err := svc.ListNotes(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Crew dispatched.", notes[0].Body)
	db.AssertExpectations(t)
}
