package store

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetDocumentsByIDs returns one record per requested id, in request order.
// Ids with no row come back as RemovedDocumentName placeholders.
func (s *PostgresStore) GetDocumentsByIDs(ctx context.Context, ids []string) ([]DocumentRecord, error) {
	if len(ids) == 0 {
		return []DocumentRecord{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title
		FROM documents
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("get documents by ids: %w", err)
	}
	defer rows.Close()

	found := make(map[string]DocumentRecord, len(ids))
	for rows.Next() {
		var item Document
		if err := rows.Scan(&item.ID, &item.Title); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		found[item.ID] = item.Record()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return orderRecords(ids, found), nil
}

func orderRecords(ids []string, found map[string]DocumentRecord) []DocumentRecord {
	records := make([]DocumentRecord, 0, len(ids))
	for _, id := range ids {
		record, ok := found[id]
		if !ok {
			record = DocumentRecord{ID: id, Name: RemovedDocumentName}
		}
		records = append(records, record)
	}
	return records
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (Document, error) {
	var item Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, owner_id, organization_id, initial_content, created_at, updated_at
		FROM documents
		WHERE id=$1
	`, documentID).Scan(&item.ID, &item.Title, &item.OwnerID, &item.OrganizationID, &item.InitialContent, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertDocument(ctx context.Context, item Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, owner_id, organization_id, initial_content)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, item.ID, item.Title, item.OwnerID, item.OrganizationID, item.InitialContent)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}
