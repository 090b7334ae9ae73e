package migration

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Run applies ("up") or reverts one step of ("down") the migrations under sourcePath.
// A database that is already current is not an error.
func Run(sourcePath, databaseURL, direction string) (err error) {
	if sourcePath == "" {
		sourcePath = "migrations"
	}

	m, err := migrate.New("file://"+sourcePath, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err == nil {
			err = errors.Join(srcErr, dbErr)
		}
	}()

	switch direction {
	case DirectionUp:
		err = m.Up()
	case DirectionDown:
		err = m.Steps(-1)
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration %s failed: %w", direction, err)
	}
	return nil
}
