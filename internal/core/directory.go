package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openmunicipal/portal/internal/model"
)

// DirectoryService manages the public city-services directory. The full
// listing is served through the local cache; every mutation invalidates it.
type DirectoryService struct {
	db    DB
	local LocalCache
}

func NewDirectoryService(db DB, local LocalCache) *DirectoryService {
	return &DirectoryService{db: db, local: local}
}

const directoryListKey = "directory:list"

const cityServiceColumns = `id, name, department, description, phone, email, online_url, hours, created_at, updated_at`

func (s *DirectoryService) Create(ctx context.Context, c *model.CityService) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO city_services (id, name, department, description, phone, email, online_url, hours, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.Name, c.Department, c.Description, c.Phone, c.Email, c.OnlineURL, c.Hours, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert city service: %w", err)
	}
	s.invalidateList()
	return nil
}

func (s *DirectoryService) GetByID(ctx context.Context, id string) (*model.CityService, error) {
	var c model.CityService
	err := s.db.QueryRow(ctx,
		"SELECT "+cityServiceColumns+" FROM city_services WHERE id = $1", id,
	).Scan(&c.ID, &c.Name, &c.Department, &c.Description, &c.Phone, &c.Email, &c.OnlineURL, &c.Hours, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get city service %s: %w", id, err)
	}
	return &c, nil
}

func (s *DirectoryService) Update(ctx context.Context, c *model.CityService) error {
	_, err := s.db.Exec(ctx,
		`UPDATE city_services SET name = $1, department = $2, description = $3, phone = $4,
		   email = $5, online_url = $6, hours = $7, updated_at = now()
		 WHERE id = $8`,
		c.Name, c.Department, c.Description, c.Phone, c.Email, c.OnlineURL, c.Hours, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update city service %s: %w", c.ID, err)
	}
	s.invalidateList()
	return nil
}

func (s *DirectoryService) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM city_services WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete city service %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("city service %s not found", id)
	}
	s.invalidateList()
	return nil
}

// List returns the whole directory ordered by department then name, the
// order the public page renders it in. The listing is cached locally; a
// cached copy serves the public page without touching the database.
func (s *DirectoryService) List(ctx context.Context) ([]model.CityService, error) {
	if s.local != nil {
		if raw, ok := s.local.Get(directoryListKey); ok {
			var services []model.CityService
			if err := json.Unmarshal(raw, &services); err == nil {
				return services, nil
			}
			s.local.Delete(directoryListKey)
		}
	}

	rows, err := s.db.Query(ctx,
		"SELECT "+cityServiceColumns+" FROM city_services ORDER BY department, name")
	if err != nil {
		return nil, fmt.Errorf("list city services: %w", err)
	}
	defer rows.Close()

	var services []model.CityService
	for rows.Next() {
		var c model.CityService
		if err := rows.Scan(&c.ID, &c.Name, &c.Department, &c.Description, &c.Phone, &c.Email,
			&c.OnlineURL, &c.Hours, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan city service: %w", err)
		}
		services = append(services, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate city services: %w", err)
	}

	if s.local != nil {
		if raw, err := json.Marshal(services); err == nil {
			s.local.Set(directoryListKey, raw)
		}
	}
	return services, nil
}

func (s *DirectoryService) invalidateList() {
	if s.local != nil {
		s.local.Delete(directoryListKey)
	}
}
