package models

import (
	"github.com/google/uuid"
)

// Item is a draftable entry in the external item catalog. The catalog is
// read-only to this core: items carry a global rank (1 is best) and the set
// of roster positions they are eligible to fill.
type Item struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Rank      int       `json:"rank"`
	Positions []string  `json:"positions"`
}
