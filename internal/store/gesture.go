package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ayusman/vizzy/internal/gesture"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Gesture represents a gesture definition stored in the database.
type Gesture struct {
	ID        string
	Name      gesture.Name
	Kind      gesture.Kind
	Position  int
	CreatedAt time.Time
}

// Definition returns the gesture identity used by the tracker.
func (g *Gesture) Definition() gesture.Definition {
	return gesture.Definition{Name: g.Name, Kind: g.Kind}
}

// GestureRepository provides CRUD operations for gestures.
type GestureRepository struct {
	db *sql.DB
}

// Gestures returns the gesture repository for this store.
func (s *Store) Gestures() *GestureRepository {
	return &GestureRepository{db: s.db}
}

// Create inserts a new gesture into the database.
// An empty ID is replaced by a generated UUID.
func (r *GestureRepository) Create(g *Gesture) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO gestures (id, name, type, position, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		g.ID, string(g.Name), string(g.Kind), g.Position, g.CreatedAt,
	)
	return err
}

// GetByName retrieves a gesture by its name.
func (r *GestureRepository) GetByName(name gesture.Name) (*Gesture, error) {
	g := &Gesture{}
	var gestureName, kind string

	err := r.db.QueryRow(
		`SELECT id, name, type, position, created_at
		 FROM gestures WHERE name = ?`,
		string(name),
	).Scan(&g.ID, &gestureName, &kind, &g.Position, &g.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	g.Name = gesture.Name(gestureName)
	g.Kind = gesture.Kind(kind)
	return g, nil
}

// List retrieves all gestures ordered by position.
func (r *GestureRepository) List() ([]*Gesture, error) {
	rows, err := r.db.Query(
		`SELECT id, name, type, position, created_at
		 FROM gestures ORDER BY position, name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gestures []*Gesture
	for rows.Next() {
		g := &Gesture{}
		var gestureName, kind string

		if err := rows.Scan(&g.ID, &gestureName, &kind, &g.Position, &g.CreatedAt); err != nil {
			return nil, err
		}

		g.Name = gesture.Name(gestureName)
		g.Kind = gesture.Kind(kind)
		gestures = append(gestures, g)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return gestures, nil
}

// Delete removes a gesture from the database by its name.
func (r *GestureRepository) Delete(name gesture.Name) error {
	result, err := r.db.Exec(`DELETE FROM gestures WHERE name = ?`, string(name))
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
