package models

import "github.com/google/uuid"

// assignID gives new rows an application-side UUID so inserts behave the same on
// Postgres and on the SQLite databases used by tests.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
