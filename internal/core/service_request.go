package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openmunicipal/portal/internal/model"
	"github.com/openmunicipal/portal/internal/notify"
)

type ServiceRequestService struct {
	db     DB
	sender notify.Sender
}

func NewServiceRequestService(db DB, sender notify.Sender) *ServiceRequestService {
	return &ServiceRequestService{db: db, sender: sender}
}

const serviceRequestColumns = `id, reference, category, title, description, location,
	submitter_name, submitter_email, submitter_phone, status, department,
	resolution_note, resolved_at, created_at, updated_at`

func (s *ServiceRequestService) Create(ctx context.Context, req *model.ServiceRequest) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO service_requests (id, reference, category, title, description, location,
		   submitter_name, submitter_email, submitter_phone, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		req.ID, req.Reference, req.Category, req.Title, req.Description, req.Location,
		req.SubmitterName, req.SubmitterEmail, req.SubmitterPhone, req.Status,
		req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert service request: %w", err)
	}

	s.deliver(ctx, req.SubmitterEmail,
		fmt.Sprintf("Request %s received", req.Reference),
		fmt.Sprintf("Your service request %q has been received and assigned reference %s.", req.Title, req.Reference))
	return nil
}

func (s *ServiceRequestService) GetByID(ctx context.Context, id string) (*model.ServiceRequest, error) {
	return s.scanOne(ctx, "SELECT "+serviceRequestColumns+" FROM service_requests WHERE id = $1", id)
}

func (s *ServiceRequestService) GetByReference(ctx context.Context, reference string) (*model.ServiceRequest, error) {
	return s.scanOne(ctx, "SELECT "+serviceRequestColumns+" FROM service_requests WHERE reference = $1", reference)
}

func (s *ServiceRequestService) scanOne(ctx context.Context, query string, arg any) (*model.ServiceRequest, error) {
	var r model.ServiceRequest
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&r.ID, &r.Reference, &r.Category, &r.Title, &r.Description, &r.Location,
		&r.SubmitterName, &r.SubmitterEmail, &r.SubmitterPhone, &r.Status, &r.Department,
		&r.ResolutionNote, &r.ResolvedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get service request: %w", err)
	}
	return &r, nil
}

func (s *ServiceRequestService) List(ctx context.Context, limit int, cursor, status, category string) ([]model.ServiceRequest, bool, error) {
	query := "SELECT " + serviceRequestColumns + " FROM service_requests WHERE 1=1"
	args := []any{}
	argIdx := 1

	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}
	if category != "" {
		query += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, category)
		argIdx++
	}
	if cursor != "" {
		query += fmt.Sprintf(" AND id > $%d", argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += " ORDER BY id"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list service requests: %w", err)
	}
	defer rows.Close()

	var requests []model.ServiceRequest
	for rows.Next() {
		var r model.ServiceRequest
		if err := rows.Scan(&r.ID, &r.Reference, &r.Category, &r.Title, &r.Description, &r.Location,
			&r.SubmitterName, &r.SubmitterEmail, &r.SubmitterPhone, &r.Status, &r.Department,
			&r.ResolutionNote, &r.ResolvedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan service request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate service requests: %w", err)
	}

	hasMore := len(requests) > limit
	if hasMore {
		requests = requests[:limit]
	}
	return requests, hasMore, nil
}

// UpdateStatus transitions a request and notifies the submitter. Invalid
// transitions (e.g. resolved back to submitted) are rejected.
func (s *ServiceRequestService) UpdateStatus(ctx context.Context, id, newStatus string, department, resolutionNote *string) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !model.ValidRequestTransition(current.Status, newStatus) {
		return fmt.Errorf("invalid status transition %s -> %s for request %s", current.Status, newStatus, id)
	}

	var resolvedAt *time.Time
	if newStatus == model.RequestResolved {
		now := time.Now()
		resolvedAt = &now
	}

	_, err = s.db.Exec(ctx,
		`UPDATE service_requests
		 SET status = $1, department = COALESCE($2, department),
		     resolution_note = COALESCE($3, resolution_note),
		     resolved_at = COALESCE($4, resolved_at), updated_at = now()
		 WHERE id = $5`,
		newStatus, department, resolutionNote, resolvedAt, id,
	)
	if err != nil {
		return fmt.Errorf("update service request %s status: %w", id, err)
	}

	s.deliver(ctx, current.SubmitterEmail,
		fmt.Sprintf("Request %s update", current.Reference),
		fmt.Sprintf("Your service request %s is now %s.", current.Reference, newStatus))
	return nil
}

func (s *ServiceRequestService) AddNote(ctx context.Context, note *model.ServiceRequestNote) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO service_request_notes (id, request_id, author, body, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		note.ID, note.RequestID, note.Author, note.Body, note.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert service request note: %w", err)
	}
	return nil
}

func (s *ServiceRequestService) ListNotes(ctx context.Context, requestID string) ([]model.ServiceRequestNote, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, request_id, author, body, created_at
		 FROM service_request_notes WHERE request_id = $1 ORDER BY created_at`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notes for request %s: %w", requestID, err)
	}
	defer rows.Close()

	var notes []model.ServiceRequestNote
	for rows.Next() {
		var n model.ServiceRequestNote
		if err := rows.Scan(&n.ID, &n.RequestID, &n.Author, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

// deliver sends best-effort; a delivery failure never fails the operation.
func (s *ServiceRequestService) deliver(ctx context.Context, to, subject, body string) {
	if s.sender == nil {
		return
	}
	if err := s.sender.Send(ctx, notify.Notification{To: to, Subject: subject, Body: body}); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("to", to).Msg("notification delivery failed")
	}
}
