// Package events defines the payloads published by the outbox dispatcher.
package events

import "time"

// UserCreated is emitted once when a new account is registered.
type UserCreated struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// ExerciseLogged is emitted for every exercise appended to a user's log.
type ExerciseLogged struct {
	ExerciseID  int64     `json:"exercise_id"`
	UserID      string    `json:"user_id"`
	Description string    `json:"description"`
	DurationMin int       `json:"duration_min"`
	Date        time.Time `json:"date"`
	LoggedAt    time.Time `json:"logged_at"`
}
