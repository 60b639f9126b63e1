// Package domain defines the business logic for the exercise tracker.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken indicates the username uniqueness constraint was violated.
	ErrUsernameTaken = errors.New("username already exists")
)

// Repository captures persistence operations backing the tracker.
type Repository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, userID string) (*User, error)
	AppendExercise(ctx context.Context, exercise Exercise) (Exercise, error)
	ListExercises(ctx context.Context, userID string, filter LogFilter) ([]Exercise, error)
}

// LogFilter narrows a log query. Nil fields leave the sequence untouched.
// Filters apply before the limit, which is a prefix-take in insertion order.
type LogFilter struct {
	From  *time.Time
	To    *time.Time
	Limit *int
}

// Service orchestrates user and exercise workflows.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateUser mints a new user with an empty exercise history.
func (s *Service) CreateUser(ctx context.Context, username string) (*User, error) {
	user := User{
		ID:       uuid.NewString(),
		Username: username,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// AddExerciseInput captures the payload from the API layer. A nil Date means
// the entry is dated at call time.
type AddExerciseInput struct {
	UserID      string
	Description string
	DurationMin int
	Date        *time.Time
}

// AddExercise appends one exercise to an existing user's history and returns
// the owning user together with the stored entry.
func (s *Service) AddExercise(ctx context.Context, input AddExerciseInput) (*User, *Exercise, error) {
	user, err := s.repo.GetUser(ctx, input.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}

	date := Day(time.Now())
	if input.Date != nil {
		date = Day(*input.Date)
	}

	stored, err := s.repo.AppendExercise(ctx, Exercise{
		UserID:      user.ID,
		Description: input.Description,
		DurationMin: input.DurationMin,
		Date:        date,
	})
	if err != nil {
		return nil, nil, err
	}
	return user, &stored, nil
}

// LogResult bundles a user with their filtered exercise log.
type LogResult struct {
	User    User
	Entries []Exercise
}

// GetLogs returns the user's exercises in insertion order, range-filtered and
// truncated per the filter.
func (s *Service) GetLogs(ctx context.Context, userID string, filter LogFilter) (*LogResult, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	entries, err := s.repo.ListExercises(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return &LogResult{User: *user, Entries: entries}, nil
}
