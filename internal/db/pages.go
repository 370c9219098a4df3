package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/simplevf/svf/internal/models"
)

// ErrPageExists is returned when a new page would collide with an existing
// page of the same name under the same org.
var ErrPageExists = errors.New("a page with this name already exists for this org")

// GetPage retrieves a page by record id. Returns nil when the page does not
// exist.
func (s *Store) GetPage(id string) (*models.Page, error) {
	if id == "" {
		return nil, nil
	}
	var page models.Page
	err := s.getRecord(id, string(models.RecordTypePage), &page)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get page %q: %w", id, err)
	}
	return &page, nil
}

// ListPages returns all pages sorted by name
func (s *Store) ListPages() ([]models.Page, error) {
	return s.FindPages(nil)
}

// FindPages returns pages matching the predicate (all pages when nil),
// sorted by name.
func (s *Store) FindPages(match func(*models.Page) bool) ([]models.Page, error) {
	payloads, err := s.recordsOfType(string(models.RecordTypePage))
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	var pages []models.Page
	for _, data := range payloads {
		var page models.Page
		if err := json.Unmarshal([]byte(data), &page); err != nil {
			return nil, fmt.Errorf("unmarshal page record: %w", err)
		}
		if match == nil || match(&page) {
			pages = append(pages, page)
		}
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Name < pages[j].Name })
	return pages, nil
}

// PagesForOrg returns the pages belonging to an org
func (s *Store) PagesForOrg(orgID string) ([]models.Page, error) {
	return s.FindPages(func(p *models.Page) bool { return p.BelongsTo == orgID })
}

// FindPageByName returns the page with the given name under an org, or nil
func (s *Store) FindPageByName(orgID, name string) (*models.Page, error) {
	pages, err := s.FindPages(func(p *models.Page) bool {
		return p.BelongsTo == orgID && p.Name == name
	})
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, nil
	}
	return &pages[0], nil
}

// UpsertPage inserts or updates a page record. New pages get a generated
// id; (name, org) must be unique among new pages, updates of an existing
// record pass.
func (s *Store) UpsertPage(page *models.Page) error {
	existing, err := s.FindPageByName(page.BelongsTo, page.Name)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != page.ID {
		return fmt.Errorf("%w: %q", ErrPageExists, page.Name)
	}

	if page.ID == "" {
		page.ID = uuid.NewString()
	}
	if err := s.putRecord(page.ID, string(models.RecordTypePage), page); err != nil {
		return fmt.Errorf("upsert page %q: %w", page.Name, err)
	}
	return nil
}
