package store

import (
	"context"
	"time"
)

// RuleProgramRow is a named, versioned rule program source (spec §6 rule
// repository CRUD).
type RuleProgramRow struct {
	Name        string    `db:"name"`
	Version     int       `db:"version"`
	Source      string    `db:"source"`
	Fingerprint string    `db:"fingerprint"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// RuleRepository manages persisted rule program sources, incrementing
// Version on every update so a single monotonic counter identifies how many
// times a named program has changed.
type RuleRepository struct {
	db *DB
}

func NewRuleRepository(db *DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) Create(ctx context.Context, name, source, fingerprint string) (RuleProgramRow, error) {
	row := RuleProgramRow{Name: name, Version: 1, Source: source, Fingerprint: fingerprint}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO rule_programs (name, version, source, fingerprint)
		VALUES (:name, :version, :source, :fingerprint)
	`, row)
	return row, err
}

func (r *RuleRepository) Update(ctx context.Context, name, source, fingerprint string) (RuleProgramRow, error) {
	var row RuleProgramRow
	err := r.db.GetContext(ctx, &row, `
		UPDATE rule_programs
		SET source = $2, fingerprint = $3, version = version + 1, updated_at = now()
		WHERE name = $1
		RETURNING name, version, source, fingerprint, created_at, updated_at
	`, name, source, fingerprint)
	return row, err
}

func (r *RuleRepository) Get(ctx context.Context, name string) (RuleProgramRow, error) {
	var row RuleProgramRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM rule_programs WHERE name = $1`, name)
	return row, err
}

func (r *RuleRepository) List(ctx context.Context) ([]RuleProgramRow, error) {
	var rows []RuleProgramRow
	err := r.db.SelectContext(ctx, &rows, `SELECT * FROM rule_programs ORDER BY name`)
	return rows, err
}

func (r *RuleRepository) Delete(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM rule_programs WHERE name = $1`, name)
	return err
}
