package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Repository defines the interface for dataset catalog data access
type Repository interface {
	Migrate(ctx context.Context) error

	CreateDataset(ctx context.Context, dataset *Dataset, data []byte) error
	GetDataset(ctx context.Context, id string) (*Dataset, error)
	GetDatasetData(ctx context.Context, id string) ([]byte, error)
	ListDatasets(ctx context.Context, filters *ListFilters) ([]*Dataset, int, error)
	DeleteDataset(ctx context.Context, id string) error

	QueryIntersects(ctx context.Context, bbox BBox, category string, limit int) ([]*Dataset, error)

	IncrementQueryCount(ctx context.Context, id string) error
	IncrementMapUsage(ctx context.Context, id string) error

	CountDatasets(ctx context.Context) (int, error)
	Stats(ctx context.Context) (*IndexStats, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the datasets table and its bbox index columns.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS datasets (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT 'other',
			tags TEXT NOT NULL DEFAULT '',
			feature_count INTEGER NOT NULL DEFAULT 0,
			geometry_types TEXT NOT NULL DEFAULT '',
			bbox_west DOUBLE PRECISION,
			bbox_south DOUBLE PRECISION,
			bbox_east DOUBLE PRECISION,
			bbox_north DOUBLE PRECISION,
			file_size_bytes BIGINT NOT NULL DEFAULT 0,
			completeness DOUBLE PRECISION NOT NULL DEFAULT 0,
			schema_def TEXT NOT NULL DEFAULT '[]',
			public BOOLEAN NOT NULL DEFAULT TRUE,
			reputation_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			query_count BIGINT NOT NULL DEFAULT 0,
			used_in_maps BIGINT NOT NULL DEFAULT 0,
			download_count BIGINT NOT NULL DEFAULT 0,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_datasets_bbox
			ON datasets (bbox_west, bbox_east, bbox_south, bbox_north);
		CREATE INDEX IF NOT EXISTS idx_datasets_category ON datasets (category);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate datasets schema: %w", err)
	}
	return nil
}

const datasetColumns = `
	id, title, description, category, tags, feature_count, geometry_types,
	bbox_west, bbox_south, bbox_east, bbox_north, file_size_bytes,
	completeness, schema_def, public, reputation_score, query_count,
	used_in_maps, download_count, created_at
`

func (r *PostgresRepository) CreateDataset(ctx context.Context, dataset *Dataset, data []byte) error {
	query := `
		INSERT INTO datasets (
			id, title, description, category, tags, feature_count, geometry_types,
			bbox_west, bbox_south, bbox_east, bbox_north, file_size_bytes,
			completeness, schema_def, public, reputation_score, data, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		dataset.ID, dataset.Title, dataset.Description, dataset.Category, dataset.Tags,
		dataset.FeatureCount, dataset.GeometryTypes,
		dataset.BBoxWest, dataset.BBoxSouth, dataset.BBoxEast, dataset.BBoxNorth,
		dataset.FileSizeBytes, dataset.Completeness, dataset.SchemaDef,
		dataset.Public, dataset.ReputationScore, data, dataset.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetDataset(ctx context.Context, id string) (*Dataset, error) {
	query := `SELECT ` + datasetColumns + ` FROM datasets WHERE id = $1`

	var dataset Dataset
	if err := r.db.GetContext(ctx, &dataset, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return &dataset, nil
}

func (r *PostgresRepository) GetDatasetData(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	if err := r.db.GetContext(ctx, &data, `SELECT data FROM datasets WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dataset data: %w", err)
	}
	return data, nil
}

func (r *PostgresRepository) ListDatasets(ctx context.Context, filters *ListFilters) ([]*Dataset, int, error) {
	where := "WHERE public = TRUE"
	args := []interface{}{}
	argIdx := 1

	if filters.Category != "" {
		where += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, filters.Category)
		argIdx++
	}
	if filters.Query != "" {
		where += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d OR tags ILIKE $%d)",
			argIdx, argIdx, argIdx)
		args = append(args, "%"+filters.Query+"%")
		argIdx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM datasets " + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count datasets: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM datasets %s
		ORDER BY reputation_score DESC, query_count + used_in_maps DESC
		LIMIT $%d OFFSET $%d
	`, datasetColumns, where, argIdx, argIdx+1)
	args = append(args, filters.Limit, filters.Offset)

	var datasets []*Dataset
	if err := r.db.SelectContext(ctx, &datasets, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list datasets: %w", err)
	}
	return datasets, total, nil
}

func (r *PostgresRepository) DeleteDataset(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ErrNotFound
	}
	return nil
}

// QueryIntersects matches records whose stored bbox overlaps the query box
// on both axes. Boundary-touching boxes count as intersecting. This is the
// bbox approximation; a PostGIS ST_Intersects upgrade replaces it without
// touching callers.
func (r *PostgresRepository) QueryIntersects(ctx context.Context, bbox BBox, category string, limit int) ([]*Dataset, error) {
	query := `
		SELECT ` + datasetColumns + `
		FROM datasets
		WHERE public = TRUE
		  AND bbox_west IS NOT NULL
		  AND bbox_east >= $1 AND bbox_west <= $2
		  AND bbox_north >= $3 AND bbox_south <= $4
	`
	args := []interface{}{bbox.West, bbox.East, bbox.South, bbox.North}

	if category != "" {
		query += " AND category = $5"
		args = append(args, category)
	}
	query += fmt.Sprintf(" ORDER BY reputation_score DESC, query_count DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	var datasets []*Dataset
	if err := r.db.SelectContext(ctx, &datasets, query, args...); err != nil {
		return nil, fmt.Errorf("failed to run intersects query: %w", err)
	}
	return datasets, nil
}

// IncrementQueryCount bumps the read counter. Single-statement update:
// atomic per-record, commutative under concurrent writers.
func (r *PostgresRepository) IncrementQueryCount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE datasets SET query_count = query_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment query count: %w", err)
	}
	return nil
}

func (r *PostgresRepository) IncrementMapUsage(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE datasets SET used_in_maps = used_in_maps + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment map usage: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountDatasets(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM datasets`); err != nil {
		return 0, fmt.Errorf("failed to count datasets: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) Stats(ctx context.Context) (*IndexStats, error) {
	query := `
		SELECT
			COUNT(*) AS total_indexed,
			COUNT(DISTINCT category) AS categories,
			COUNT(DISTINCT geometry_types) AS geometry_type_variants
		FROM datasets
		WHERE public = TRUE
		  AND bbox_west IS NOT NULL
		  AND bbox_south IS NOT NULL
	`

	var row struct {
		TotalIndexed         int `db:"total_indexed"`
		Categories           int `db:"categories"`
		GeometryTypeVariants int `db:"geometry_type_variants"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("failed to compute index stats: %w", err)
	}

	total, err := r.CountDatasets(ctx)
	if err != nil {
		return nil, err
	}

	return &IndexStats{
		TotalDatasets:        total,
		SpatiallyIndexed:     row.TotalIndexed,
		Categories:           row.Categories,
		GeometryTypeVariants: row.GeometryTypeVariants,
	}, nil
}
