package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/exercisetracker/internal/domain"
	"example.com/exercisetracker/internal/events"
	"example.com/exercisetracker/internal/observability"
)

// uniqueViolation is the Postgres error code raised when the username
// uniqueness constraint rejects an insert.
const uniqueViolation = "23505"

// Repository provides Postgres-backed persistence for users, exercises, and
// outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateUser persists the user and records a user.created outbox event inside
// a single transaction. A username collision maps to domain.ErrUsernameTaken.
func (r *Repository) CreateUser(ctx context.Context, user domain.User) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`INSERT INTO users (user_id, username, created_at) VALUES ($1,$2,$3)`,
		user.ID, user.Username, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			err = domain.ErrUsernameTaken
		}
		return err
	}

	if err = insertOutbox(ctx, tx, "user.created", "user", user.ID, user.ID, events.UserCreated{
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: now,
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordUserCreated(now)
	return nil
}

// GetUser fetches a user by id, returning (nil, nil) when absent.
func (r *Repository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT user_id, username FROM users WHERE user_id=$1`, userID)

	var user domain.User
	if err := row.Scan(&user.ID, &user.Username); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// AppendExercise inserts one exercise row and the matching outbox event in a
// single transaction. The insert is atomic, so concurrent appends to the same
// user never clobber each other. Insertion order is the BIGSERIAL exercise_id.
func (r *Repository) AppendExercise(ctx context.Context, exercise domain.Exercise) (domain.Exercise, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Exercise{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	now := time.Now().UTC()
	row := tx.QueryRow(ctx,
		`INSERT INTO exercises (user_id, description, duration_min, exercise_date, created_at)
         VALUES ($1,$2,$3,$4,$5) RETURNING exercise_id`,
		exercise.UserID, exercise.Description, exercise.DurationMin, exercise.Date, now,
	)
	if err = row.Scan(&exercise.ID); err != nil {
		return domain.Exercise{}, err
	}

	if err = insertOutbox(ctx, tx, "exercise.logged", "exercise",
		fmt.Sprintf("%d", exercise.ID), exercise.UserID, events.ExerciseLogged{
			ExerciseID:  exercise.ID,
			UserID:      exercise.UserID,
			Description: exercise.Description,
			DurationMin: exercise.DurationMin,
			Date:        exercise.Date,
			LoggedAt:    now,
		}); err != nil {
		return domain.Exercise{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return domain.Exercise{}, err
	}
	observability.RecordExerciseLogged(now)
	return exercise, nil
}

// ListExercises returns the user's exercises in insertion order. Date range
// filters apply before the limit so truncation is always a prefix-take.
func (r *Repository) ListExercises(ctx context.Context, userID string, filter domain.LogFilter) ([]domain.Exercise, error) {
	query := `SELECT exercise_id, user_id, description, duration_min, exercise_date
        FROM exercises WHERE user_id=$1`
	args := []interface{}{userID}

	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(` AND exercise_date >= $%d`, len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(` AND exercise_date <= $%d`, len(args))
	}

	query += ` ORDER BY exercise_id`

	if filter.Limit != nil {
		args = append(args, *filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Exercise, 0)
	for rows.Next() {
		var ex domain.Exercise
		if err := rows.Scan(&ex.ID, &ex.UserID, &ex.Description, &ex.DurationMin, &ex.Date); err != nil {
			return nil, err
		}
		ex.Date = ex.Date.UTC()
		results = append(results, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, eventType, aggregateType, aggregateID, partitionKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}
	dedupeKey := fmt.Sprintf("%s:%s", aggregateID, eventType)

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = tx.Exec(ctx, stmt,
		aggregateType,
		aggregateID,
		eventType,
		meta.Topic,
		partitionKey,
		body,
		dedupeKey,
	)
	return err
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic string
}

var eventCatalog = map[string]EventMetadata{
	"user.created":    {Topic: "user_events"},
	"exercise.logged": {Topic: "exercise_events"},
}
