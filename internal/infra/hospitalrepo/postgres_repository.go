package hospitalrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/yanqian/carefinder/internal/domain/hospital"
)

// Schema creates the snapshot tables. Ratings live in a vector(4) column in
// [doctors, nurses, staffs, patients] order.
const Schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS hospital_snapshots (
	id         BIGSERIAL PRIMARY KEY,
	source     TEXT        NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS hospitals (
	snapshot_id    BIGINT   NOT NULL REFERENCES hospital_snapshots(id) ON DELETE CASCADE,
	position       INTEGER  NOT NULL,
	facility_id    TEXT     NOT NULL,
	name           TEXT     NOT NULL DEFAULT '',
	address        TEXT     NOT NULL DEFAULT '',
	city           TEXT     NOT NULL DEFAULT '',
	state          TEXT     NOT NULL,
	zip_code       TEXT     NOT NULL DEFAULT '',
	county         TEXT     NOT NULL DEFAULT '',
	hospital_type  TEXT     NOT NULL DEFAULT '',
	ratings        vector(4) NOT NULL,
	overall_rating SMALLINT NOT NULL,
	PRIMARY KEY (snapshot_id, position)
);
`

// PostgresRepository implements hospital.Repository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema applies Schema.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply hospital schema: %w", err)
	}
	return nil
}

// Latest loads the most recent snapshot with rows in their original order.
func (r *PostgresRepository) Latest(ctx context.Context) (hospital.Snapshot, bool, error) {
	var (
		id       int64
		snapshot hospital.Snapshot
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, source, fetched_at
		FROM hospital_snapshots
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1
	`).Scan(&id, &snapshot.Source, &snapshot.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return hospital.Snapshot{}, false, nil
	}
	if err != nil {
		return hospital.Snapshot{}, false, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT facility_id, name, address, city, state, zip_code, county, hospital_type, ratings, overall_rating
		FROM hospitals
		WHERE snapshot_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return hospital.Snapshot{}, false, err
	}
	defer rows.Close()

	table := make(hospital.Table, 0)
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return hospital.Snapshot{}, false, err
		}
		table = append(table, h)
	}
	if err := rows.Err(); err != nil {
		return hospital.Snapshot{}, false, err
	}
	snapshot.Table = table
	snapshot.FetchedAt = snapshot.FetchedAt.UTC()
	return snapshot, true, nil
}

// Replace stores snapshot as the latest and drops older ones in one transaction.
func (r *PostgresRepository) Replace(ctx context.Context, snapshot hospital.Snapshot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO hospital_snapshots (source, fetched_at)
		VALUES ($1, $2)
		RETURNING id
	`, snapshot.Source, snapshot.FetchedAt).Scan(&id); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, h := range snapshot.Table {
		batch.Queue(`
			INSERT INTO hospitals (snapshot_id, position, facility_id, name, address, city, state, zip_code, county, hospital_type, ratings, overall_rating)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, id, i, h.FacilityID, h.Name, h.Address, h.City, h.State, h.ZIPCode, h.County, h.HospitalType, ratingsVector(h.Ratings), h.OverallRating)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert hospitals: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM hospital_snapshots WHERE id <> $1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHospital(row rowScanner) (hospital.Hospital, error) {
	var (
		h       hospital.Hospital
		ratings pgvector.Vector
	)
	if err := row.Scan(&h.FacilityID, &h.Name, &h.Address, &h.City, &h.State, &h.ZIPCode, &h.County, &h.HospitalType, &ratings, &h.OverallRating); err != nil {
		return hospital.Hospital{}, err
	}
	values := ratings.Slice()
	if len(values) != 4 {
		return hospital.Hospital{}, fmt.Errorf("hospital %s: ratings vector has %d dimensions", h.FacilityID, len(values))
	}
	h.Ratings = hospital.Ratings{
		Doctors:  float64(values[0]),
		Nurses:   float64(values[1]),
		Staffs:   float64(values[2]),
		Patients: float64(values[3]),
	}
	return h, nil
}

func ratingsVector(r hospital.Ratings) pgvector.Vector {
	v := r.Vector()
	return pgvector.NewVector([]float32{float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3])})
}

var _ hospital.Repository = (*PostgresRepository)(nil)
