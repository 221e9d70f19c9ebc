package sequence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for sequence persistence.
// Steps are owned by their sequence and are stored with it.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Sequence, error)
	List(ctx context.Context) ([]Sequence, error)
	Create(ctx context.Context, seq *Sequence) error
	Update(ctx context.Context, seq *Sequence) error
	Delete(ctx context.Context, id string) error
}

const sequenceColumns = `id, name, steps, created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a sequence by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Sequence, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sequenceColumns+` FROM sequences WHERE id = ?`, id)
	seq, err := scanSequence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSequenceNotFound
		}
		return nil, fmt.Errorf("querying sequence by id: %w", err)
	}
	return seq, nil
}

// List retrieves all sequences, oldest first.
func (r *SQLiteRepository) List(ctx context.Context) ([]Sequence, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sequenceColumns+` FROM sequences ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying sequences: %w", err)
	}
	defer rows.Close()

	var out []Sequence
	for rows.Next() {
		seq, err := scanSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sequence: %w", err)
		}
		out = append(out, *seq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sequences: %w", err)
	}
	return out, nil
}

// Create inserts a new sequence.
func (r *SQLiteRepository) Create(ctx context.Context, seq *Sequence) error {
	stepsJSON, err := marshalSteps(seq.Steps)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if seq.CreatedAt.IsZero() {
		seq.CreatedAt = now
	}
	seq.UpdatedAt = now

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sequences (`+sequenceColumns+`) VALUES (?, ?, ?, ?, ?)`,
		seq.ID, seq.Name, stepsJSON,
		seq.CreatedAt.Format(time.RFC3339Nano),
		seq.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrSequenceExists
		}
		return fmt.Errorf("inserting sequence: %w", err)
	}
	return nil
}

// Update replaces name and steps of an existing sequence.
func (r *SQLiteRepository) Update(ctx context.Context, seq *Sequence) error {
	stepsJSON, err := marshalSteps(seq.Steps)
	if err != nil {
		return err
	}

	seq.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE sequences SET name = ?, steps = ?, updated_at = ? WHERE id = ?`,
		seq.Name, stepsJSON, seq.UpdatedAt.Format(time.RFC3339Nano), seq.ID,
	)
	if err != nil {
		return fmt.Errorf("updating sequence: %w", err)
	}
	return expectOneRow(result)
}

// Delete removes a sequence and, with it, its steps.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sequences WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting sequence: %w", err)
	}
	return expectOneRow(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSequence(scanner rowScanner) (*Sequence, error) {
	var s Sequence
	var stepsJSON, createdAt, updatedAt string

	if err := scanner.Scan(&s.ID, &s.Name, &stepsJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		s.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		s.UpdatedAt = t
	}

	if stepsJSON != "" && stepsJSON != "[]" {
		if err := json.Unmarshal([]byte(stepsJSON), &s.Steps); err != nil {
			return nil, fmt.Errorf("unmarshalling steps: %w", err)
		}
	}
	if s.Steps == nil {
		s.Steps = []Step{}
	}
	return &s, nil
}

func marshalSteps(steps []Step) (string, error) {
	if len(steps) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(steps)
	if err != nil {
		return "", fmt.Errorf("marshalling steps: %w", err)
	}
	return string(data), nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrSequenceNotFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
