package store

import (
	"errors"
	"fmt"
	"os"

	"github.com/ayusman/vizzy/internal/gesture"
)

// ErrDatabaseLoad is returned when the gesture database is missing or malformed.
var ErrDatabaseLoad = errors.New("gesture database load failed")

// LoadGestureSet reads the gesture set from the database file at path.
// The file is opened read-only and must already exist.
func LoadGestureSet(path string) ([]gesture.Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseLoad, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrDatabaseLoad, path)
	}

	s, err := openReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseLoad, err)
	}
	defer s.Close()

	gestures, err := s.Gestures().List()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDatabaseLoad, path, err)
	}
	if len(gestures) == 0 {
		return nil, fmt.Errorf("%w: %s contains no gestures", ErrDatabaseLoad, path)
	}

	defs := make([]gesture.Definition, 0, len(gestures))
	for _, g := range gestures {
		defs = append(defs, g.Definition())
	}
	return defs, nil
}

// Seed inserts the reference gesture set, skipping gestures already present.
func (s *Store) Seed() error {
	repo := s.Gestures()
	for i, def := range gesture.DefaultSet() {
		if _, err := repo.GetByName(def.Name); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		if err := repo.Create(&Gesture{Name: def.Name, Kind: def.Kind, Position: i}); err != nil {
			return fmt.Errorf("seed %s: %w", def.Name, err)
		}
	}
	return nil
}
