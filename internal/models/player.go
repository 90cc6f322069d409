package models

import (
	"time"

	"github.com/google/uuid"
)

// Player is a durable player identity with aggregate results.
type Player struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	Draws     int       `json:"draws"`
	CreatedAt time.Time `json:"created_at"`
}
