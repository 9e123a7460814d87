package crawl

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// PostgresRepo persists classified documents into a collection-scoped
// documents table.
type PostgresRepo struct {
	db         *sql.DB
	collection string
}

func NewPostgresRepo(db *sql.DB, collection string) *PostgresRepo {
	return &PostgresRepo{db: db, collection: collection}
}

func (r *PostgresRepo) SetCollection(name string) { r.collection = name }

func (r *PostgresRepo) Collection() string { return r.collection }

// Collection describes a stored document group and its size.
type Collection struct {
	Name      string
	Documents int
}

// ListCollections returns every collection in the store with its
// document count, ordered by name.
func (r *PostgresRepo) ListCollections(ctx context.Context) ([]Collection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT collection, COUNT(*)
		FROM documents
		GROUP BY collection
		ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var collections []Collection
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.Name, &c.Documents); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return collections, nil
}

func (r *PostgresRepo) SaveDocument(ctx context.Context, doc Document) error {
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO documents (collection, url, markdown, links, metadata, level, classification)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.collection, doc.URL, doc.Markdown, pq.Array(doc.Links), metadata, doc.Level, string(doc.Classification))
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}
