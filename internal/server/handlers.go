package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/myatdennis/coursesync/internal/models"
)

// SyncHandler serves the REST surface the HTTP remote client consumes:
// GET and PUT on enrollments, progress and reflections. Writes are fanned
// out through the hub as realtime events so other connected sessions can
// reconcile.
type SyncHandler struct {
	data   *Dataset
	hub    *Hub
	logger *log.Logger
}

func NewSyncHandler(data *Dataset, hub *Hub, logger *log.Logger) *SyncHandler {
	return &SyncHandler{data: data, hub: hub, logger: logger}
}

// Routes returns the path patterns this handler serves.
func (h *SyncHandler) Routes() []string {
	return []string{"/api/enrollments", "/api/progress", "/api/reflections"}
}

func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.put(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SyncHandler) get(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	courseID := r.URL.Query().Get("course_id")
	if userID == "" || courseID == "" {
		http.Error(w, "user_id and course_id are required", http.StatusBadRequest)
		return
	}

	switch r.URL.Path {
	case "/api/enrollments":
		e, ok := h.data.Enrollment(userID, courseID)
		if !ok {
			http.Error(w, "enrollment not found", http.StatusNotFound)
			return
		}
		writeJSON(w, e)
	case "/api/progress":
		writeJSON(w, h.data.Progress(userID, courseID))
	case "/api/reflections":
		writeJSON(w, h.data.Reflections(userID, courseID))
	default:
		http.NotFound(w, r)
	}
}

func (h *SyncHandler) put(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/enrollments":
		var e models.CourseEnrollment
		if !decode(w, r, &e) {
			return
		}
		if err := e.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.data.PutEnrollment(e)
		h.publish(models.EventEnrollmentChanged, e.UserID, models.EnrollmentChangedPayload{Enrollment: e}, e.LastAccessedAt)
		w.WriteHeader(http.StatusOK)
	case "/api/progress":
		var p models.LessonProgress
		if !decode(w, r, &p) {
			return
		}
		if err := p.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.data.PutProgress(p)
		h.logger.Debug("progress upsert", "user", p.UserID, "lesson", p.LessonID, "pct", p.ProgressPercentage)
		h.publish(models.EventProgressSync, p.UserID, models.ProgressSyncPayload{CourseID: p.CourseID, Progress: p}, p.LastAccessedAt)
		w.WriteHeader(http.StatusOK)
	case "/api/reflections":
		var ref models.Reflection
		if !decode(w, r, &ref) {
			return
		}
		if err := ref.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.data.PutReflection(ref)
		w.WriteHeader(http.StatusOK)
	default:
		http.NotFound(w, r)
	}
}

func (h *SyncHandler) publish(t models.EventType, userID string, payload any, at time.Time) {
	if h.hub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.hub.Publish(models.RealtimeEvent{
		Type:      t,
		UserID:    userID,
		Payload:   data,
		Timestamp: at,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
