package core

import (
	"context"
	"fmt"

	"github.com/openmunicipal/portal/internal/model"
)

type EventService struct {
	db DB
}

func NewEventService(db DB) *EventService {
	return &EventService{db: db}
}

const eventColumns = `id, title, description, venue, starts_at, ends_at, published, created_at, updated_at`

func (s *EventService) Create(ctx context.Context, e *model.Event) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO events (id, title, description, venue, starts_at, ends_at, published, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Title, e.Description, e.Venue, e.StartsAt, e.EndsAt, e.Published, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *EventService) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := s.db.QueryRow(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id = $1", id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.Venue, &e.StartsAt, &e.EndsAt, &e.Published, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	return &e, nil
}

func (s *EventService) Update(ctx context.Context, e *model.Event) error {
	_, err := s.db.Exec(ctx,
		`UPDATE events SET title = $1, description = $2, venue = $3, starts_at = $4,
		   ends_at = $5, published = $6, updated_at = now()
		 WHERE id = $7`,
		e.Title, e.Description, e.Venue, e.StartsAt, e.EndsAt, e.Published, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update event %s: %w", e.ID, err)
	}
	return nil
}

// ListUpcoming returns published events that have not ended yet, soonest
// first.
func (s *EventService) ListUpcoming(ctx context.Context, limit int) ([]model.Event, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+eventColumns+" FROM events WHERE published AND ends_at > now() ORDER BY starts_at LIMIT $1",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Venue, &e.StartsAt, &e.EndsAt,
			&e.Published, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Register signs an attendee up for a published event.
func (s *EventService) Register(ctx context.Context, reg *model.EventRegistration) error {
	event, err := s.GetByID(ctx, reg.EventID)
	if err != nil {
		return err
	}
	if !event.Published {
		return fmt.Errorf("event %s is not open for registration", reg.EventID)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO event_registrations (id, event_id, attendee_name, attendee_email, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		reg.ID, reg.EventID, reg.AttendeeName, reg.AttendeeEmail, reg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event registration: %w", err)
	}
	return nil
}

func (s *EventService) ListRegistrations(ctx context.Context, eventID string) ([]model.EventRegistration, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, event_id, attendee_name, attendee_email, created_at
		 FROM event_registrations WHERE event_id = $1 ORDER BY created_at`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations for event %s: %w", eventID, err)
	}
	defer rows.Close()

	var regs []model.EventRegistration
	for rows.Next() {
		var r model.EventRegistration
		if err := rows.Scan(&r.ID, &r.EventID, &r.AttendeeName, &r.AttendeeEmail, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return regs, nil
}
