package db

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/simplevf/svf/internal/models"
)

const encryptionKeyID = "ENCRYPTION_KEY"

type encryptionRecord struct {
	Key string `json:"key"`
}

// GetOrg retrieves an org by id (the org alias). Returns nil when the org
// does not exist.
func (s *Store) GetOrg(id string) (*models.Org, error) {
	if id == "" {
		return nil, nil
	}
	var org models.Org
	err := s.getRecord(id, string(models.RecordTypeOrg), &org)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get org %q: %w", id, err)
	}
	return &org, nil
}

// GetOrgWithDefault retrieves an org by id, returning def when it does not
// exist.
func (s *Store) GetOrgWithDefault(id string, def *models.Org) (*models.Org, error) {
	org, err := s.GetOrg(id)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return def, nil
	}
	return org, nil
}

// ListOrgs returns all orgs sorted by name
func (s *Store) ListOrgs() ([]models.Org, error) {
	payloads, err := s.recordsOfType(string(models.RecordTypeOrg))
	if err != nil {
		return nil, fmt.Errorf("list orgs: %w", err)
	}

	orgs := make([]models.Org, 0, len(payloads))
	for _, data := range payloads {
		var org models.Org
		if err := json.Unmarshal([]byte(data), &org); err != nil {
			return nil, fmt.Errorf("unmarshal org record: %w", err)
		}
		orgs = append(orgs, org)
	}

	sort.Slice(orgs, func(i, j int) bool { return orgs[i].Name < orgs[j].Name })
	return orgs, nil
}

// UpsertOrg inserts or updates an org record keyed by its id
func (s *Store) UpsertOrg(org *models.Org) error {
	if org.ID == "" {
		return fmt.Errorf("upsert org: missing id")
	}
	if err := s.putRecord(org.ID, string(models.RecordTypeOrg), org); err != nil {
		return fmt.Errorf("upsert org %q: %w", org.ID, err)
	}
	return nil
}

// EncryptionKey returns the vault master key, generating and persisting it
// on first use.
func (s *Store) EncryptionKey() ([]byte, error) {
	var rec encryptionRecord
	err := s.getRecord(encryptionKeyID, string(models.RecordTypeEncryption), &rec)
	if err == nil {
		return hex.DecodeString(rec.Key)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get encryption key: %w", err)
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	rec.Key = hex.EncodeToString(key)
	if err := s.putRecord(encryptionKeyID, string(models.RecordTypeEncryption), rec); err != nil {
		return nil, fmt.Errorf("save encryption key: %w", err)
	}
	return key, nil
}
