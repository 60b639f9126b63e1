// Package api exposes the HTTP surface of the exercise tracker.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/exercisetracker/internal/domain"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/users", h.users)
	mux.HandleFunc("/api/users/", h.userSubresource)
	mux.HandleFunc("/healthz", healthz)
	mux.HandleFunc("/", index)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexPage))
}

func (h *Handler) users(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createUser(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
	}
}

// userSubresource dispatches /api/users/{_id}/exercises and /api/users/{_id}/logs.
func (h *Handler) userSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/users/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	userID := parts[0]

	switch parts[1] {
	case "exercises":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "unsupported method")
			return
		}
		h.addExercise(w, r, userID)
	case "logs":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "unsupported method")
			return
		}
		h.getLogs(w, r, userID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.CreateUser(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			writeError(w, http.StatusBadRequest, "Username already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, CreateUserResponse{
		Username: user.Username,
		ID:       user.ID,
	})
}

func (h *Handler) addExercise(w http.ResponseWriter, r *http.Request, userID string) {
	var req AddExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var date *time.Time
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := parseDay(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date")
			return
		}
		date = &parsed
	}

	user, exercise, err := h.service.AddExercise(r.Context(), domain.AddExerciseInput{
		UserID:      userID,
		Description: req.Description,
		DurationMin: int(req.Duration),
		Date:        date,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ExerciseResponse{
		ID:          user.ID,
		Username:    user.Username,
		Description: exercise.Description,
		Duration:    exercise.DurationMin,
		Date:        exercise.DateString(),
	})
}

func (h *Handler) getLogs(w http.ResponseWriter, r *http.Request, userID string) {
	var filter domain.LogFilter

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := parseDay(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date")
			return
		}
		filter.From = &parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := parseDay(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date")
			return
		}
		filter.To = &parsed
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = &parsed
	}

	result, err := h.service.GetLogs(r.Context(), userID, filter)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log := make([]LogEntry, 0, len(result.Entries))
	for _, entry := range result.Entries {
		log = append(log, LogEntry{
			Description: entry.Description,
			Duration:    entry.DurationMin,
			Date:        entry.DateString(),
		})
	}

	writeJSON(w, http.StatusOK, LogsResponse{
		ID:       result.User.ID,
		Username: result.User.Username,
		Count:    len(log),
		Log:      log,
	})
}

// CreateUserRequest is the payload for POST /api/users.
type CreateUserRequest struct {
	Username string `json:"username"`
}

// Validate ensures request correctness.
func (r CreateUserRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return errors.New("Username is required")
	}
	return nil
}

// Minutes accepts a JSON number or a numeric string, mirroring clients that
// post form values as text.
type Minutes int

// UnmarshalJSON implements json.Unmarshaler.
func (m *Minutes) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*m = 0
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		trimmed = strings.TrimSpace(str)
	}
	if trimmed == "" {
		*m = 0
		return nil
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fmt.Errorf("duration must be numeric, got %q", trimmed)
	}
	*m = Minutes(value)
	return nil
}

// AddExerciseRequest is the payload for POST /api/users/{_id}/exercises.
type AddExerciseRequest struct {
	Description string  `json:"description"`
	Duration    Minutes `json:"duration"`
	Date        string  `json:"date"`
}

// Validate ensures request correctness. An absent, empty, or zero duration is
// treated as missing; negative values pass, as no range validation applies.
func (r AddExerciseRequest) Validate() error {
	if strings.TrimSpace(r.Description) == "" || r.Duration == 0 {
		return errors.New("Description and duration are required")
	}
	return nil
}

// CreateUserResponse describes the response body for user creation.
type CreateUserResponse struct {
	Username string `json:"username"`
	ID       string `json:"_id"`
}

// ExerciseResponse echoes a freshly logged exercise with its owner.
type ExerciseResponse struct {
	ID          string `json:"_id"`
	Username    string `json:"username"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Date        string `json:"date"`
}

// LogEntry is one element of the log array.
type LogEntry struct {
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Date        string `json:"date"`
}

// LogsResponse packages the filtered log with its final count.
type LogsResponse struct {
	ID       string     `json:"_id"`
	Username string     `json:"username"`
	Count    int        `json:"count"`
	Log      []LogEntry `json:"log"`
}

var dayLayouts = []string{"2006-01-02", time.RFC3339}

// parseDay parses a calendar date and truncates it to midnight UTC.
func parseDay(value string) (time.Time, error) {
	for _, layout := range dayLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return domain.Day(parsed), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Exercise Tracker</title></head>
<body>
  <h1>Exercise Tracker</h1>
  <ul>
    <li><code>POST /api/users</code> {"username"}</li>
    <li><code>POST /api/users/:_id/exercises</code> {"description","duration","date?"}</li>
    <li><code>GET /api/users/:_id/logs?from&amp;to&amp;limit</code></li>
  </ul>
</body>
</html>
`
