package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/harrison/conductor/internal/engine/expertise"
)

// SaveExpertiseBlob persists one domain's rendered blob for a project,
// bumping its stored version to match, and records a one-line audit entry
// in expertise_updates.
func (s *Store) SaveExpertiseBlob(projectID string, domain expertise.Domain, blob expertise.Blob, sessionID, summary string) error {
	content, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("marshal expertise blob: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO expertise_files (project_id, domain, content, version, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(project_id, domain) DO UPDATE SET
			content = excluded.content, version = excluded.version, updated_at = CURRENT_TIMESTAMP`,
		projectID, string(domain), string(content), blob.Version)
	if err != nil {
		return fmt.Errorf("save expertise blob: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO expertise_updates (project_id, domain, session_id, summary)
		VALUES (?, ?, ?, ?)`,
		projectID, string(domain), nullString(sessionID), summary)
	if err != nil {
		return fmt.Errorf("record expertise update: %w", err)
	}
	return nil
}

// LoadExpertiseBlob returns the persisted blob for a project/domain, or the
// zero blob with ok=false if nothing has been recorded yet.
func (s *Store) LoadExpertiseBlob(projectID string, domain expertise.Domain) (expertise.Blob, bool, error) {
	var content string
	err := s.db.QueryRow(`SELECT content FROM expertise_files WHERE project_id = ? AND domain = ?`, projectID, string(domain)).Scan(&content)
	if err == sql.ErrNoRows {
		return expertise.Blob{}, false, nil
	}
	if err != nil {
		return expertise.Blob{}, false, fmt.Errorf("load expertise blob: %w", err)
	}
	var blob expertise.Blob
	if err := json.Unmarshal([]byte(content), &blob); err != nil {
		return expertise.Blob{}, false, fmt.Errorf("unmarshal expertise blob: %w", err)
	}
	return blob, true, nil
}

// LoadAllExpertiseBlobs returns every persisted blob for a project, keyed by
// domain, for seeding an in-process expertise.Store before a run.
func (s *Store) LoadAllExpertiseBlobs(projectID string) (map[expertise.Domain]expertise.Blob, error) {
	rows, err := s.db.Query(`SELECT domain, content FROM expertise_files WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load expertise blobs: %w", err)
	}
	defer rows.Close()

	out := make(map[expertise.Domain]expertise.Blob)
	for rows.Next() {
		var domainStr, content string
		if err := rows.Scan(&domainStr, &content); err != nil {
			return nil, err
		}
		var blob expertise.Blob
		if err := json.Unmarshal([]byte(content), &blob); err != nil {
			continue
		}
		out[expertise.Domain(domainStr)] = blob
	}
	return out, rows.Err()
}
