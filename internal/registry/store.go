package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	ErrAlreadyRegistered = errors.New("premises already registered")
	ErrNotRegistered     = errors.New("premises not registered")
)

// Registration is one household the service polls for.
type Registration struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Postcode   string    `json:"postcode"`
	House      string    `json:"house"`
	PremisesID string    `json:"premises_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists registrations in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and migrates) the registration database at path.
// Use ":memory:" for an in-memory database.
func OpenStore(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a second connection to ":memory:" would be a different database
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS registrations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		postcode TEXT NOT NULL,
		house TEXT NOT NULL,
		premises_id TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);`)
	return err
}

// Add inserts reg, assigning an ID and creation time when missing.
func (s *Store) Add(ctx context.Context, reg Registration) (Registration, error) {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO registrations (id, name, postcode, house, premises_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		reg.ID, reg.Name, reg.Postcode, reg.House, reg.PremisesID, reg.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return Registration{}, fmt.Errorf("%s: %w", reg.PremisesID, ErrAlreadyRegistered)
		}
		return Registration{}, fmt.Errorf("inserting registration: %w", err)
	}
	return reg, nil
}

// Remove deletes the registration for premisesID.
func (s *Store) Remove(ctx context.Context, premisesID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM registrations WHERE premises_id = ?`, premisesID)
	if err != nil {
		return fmt.Errorf("deleting registration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting registration: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", premisesID, ErrNotRegistered)
	}
	return nil
}

// Get returns the registration for premisesID.
func (s *Store) Get(ctx context.Context, premisesID string) (Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, postcode, house, premises_id, created_at
		 FROM registrations WHERE premises_id = ?`, premisesID)

	reg, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Registration{}, fmt.Errorf("%s: %w", premisesID, ErrNotRegistered)
	}
	return reg, err
}

// List returns all registrations ordered by creation time.
func (s *Store) List(ctx context.Context) ([]Registration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, postcode, house, premises_id, created_at
		 FROM registrations ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing registrations: %w", err)
	}
	defer rows.Close()

	var regs []Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRegistration(sc scanner) (Registration, error) {
	var (
		reg     Registration
		created string
	)
	if err := sc.Scan(&reg.ID, &reg.Name, &reg.Postcode, &reg.House, &reg.PremisesID, &created); err != nil {
		return Registration{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Registration{}, fmt.Errorf("parsing created_at: %w", err)
	}
	reg.CreatedAt = t
	return reg, nil
}
