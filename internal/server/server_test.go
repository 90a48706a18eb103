package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/myatdennis/coursesync/internal/models"
	"github.com/myatdennis/coursesync/internal/services"
	"github.com/myatdennis/coursesync/internal/shared"
)

func testServer(t *testing.T) (*httptest.Server, *Dataset, *Hub) {
	t.Helper()
	logger := shared.NewLogger(nil)
	data := NewDataset()
	hub := NewHub(logger)

	router := NewBasicRouter()
	router.Handler(NewSyncHandler(data, hub, logger))
	router.Handler(hub)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
	})
	return srv, data, hub
}

// The server must satisfy the same contract the HTTP remote client expects,
// so the round trip is tested through that client.
func TestSyncHandler_RoundTripThroughRemoteClient(t *testing.T) {
	srv, _, _ := testServer(t)
	remote := services.NewHTTPRemote(srv.URL, nil)
	ctx := context.Background()

	_, err := remote.FetchEnrollment(ctx, "user-1", "course-1")
	if !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before enrollment, got %v", err)
	}

	enrollment := models.CourseEnrollment{
		ID:         "enr-1",
		UserID:     "user-1",
		CourseID:   "course-1",
		EnrolledAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := remote.UpsertEnrollment(ctx, enrollment); err != nil {
		t.Fatalf("upsert enrollment: %v", err)
	}
	got, err := remote.FetchEnrollment(ctx, "user-1", "course-1")
	if err != nil {
		t.Fatalf("fetch enrollment: %v", err)
	}
	if got.ID != "enr-1" {
		t.Errorf("unexpected enrollment: %+v", got)
	}

	progress := models.LessonProgress{
		ID:                 "lp-1",
		UserID:             "user-1",
		CourseID:           "course-1",
		ModuleID:           "module-1",
		LessonID:           "lesson-1",
		ProgressPercentage: 60,
	}
	if err := remote.UpsertLessonProgress(ctx, progress); err != nil {
		t.Fatalf("upsert progress: %v", err)
	}
	// Idempotent: the same record again stays one logical row.
	if err := remote.UpsertLessonProgress(ctx, progress); err != nil {
		t.Fatalf("repeat upsert progress: %v", err)
	}
	records, err := remote.FetchLessonProgress(ctx, "user-1", "course-1")
	if err != nil {
		t.Fatalf("fetch progress: %v", err)
	}
	if len(records) != 1 || records[0].ProgressPercentage != 60 {
		t.Errorf("unexpected progress records: %+v", records)
	}

	reflection := models.Reflection{
		ID:       "ref-1",
		UserID:   "user-1",
		CourseID: "course-1",
		LessonID: "lesson-1",
		Content:  "notes",
	}
	if err := remote.UpsertReflection(ctx, reflection); err != nil {
		t.Fatalf("upsert reflection: %v", err)
	}
	reflections, err := remote.FetchReflections(ctx, "user-1", "course-1")
	if err != nil {
		t.Fatalf("fetch reflections: %v", err)
	}
	if len(reflections) != 1 || reflections[0].Content != "notes" {
		t.Errorf("unexpected reflections: %+v", reflections)
	}
}

func TestSyncHandler_RejectsInvalidRecords(t *testing.T) {
	srv, _, _ := testServer(t)

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/progress",
		strings.NewReader(`{"user_id":"u","course_id":"c","lesson_id":"l","progress_percentage":150}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for out-of-range percentage, got %d", resp.StatusCode)
	}
}

func TestSyncHandler_RequiresQueryIdentity(t *testing.T) {
	srv, _, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/api/progress")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without identity params, got %d", resp.StatusCode)
	}
}

func dialWS(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user_id=" + userID
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_FansEventsToAllSessions(t *testing.T) {
	srv, _, _ := testServer(t)

	sender := dialWS(t, srv, "user-1")
	receiver := dialWS(t, srv, "user-2")

	ev := models.RealtimeEvent{
		Type:      models.EventCourseUpdated,
		UserID:    "user-1",
		Payload:   []byte(`{}`),
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := sender.WriteJSON(ev); err != nil {
		t.Fatalf("write: %v", err)
	}

	receiver.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got models.RealtimeEvent
	if err := receiver.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != models.EventCourseUpdated || got.UserID != "user-1" {
		t.Errorf("unexpected event: %+v", got)
	}
}

func TestHub_UpsertPublishesProgressSync(t *testing.T) {
	srv, _, _ := testServer(t)

	watcher := dialWS(t, srv, "user-2")
	remote := services.NewHTTPRemote(srv.URL, nil)

	progress := models.LessonProgress{
		ID:                 "lp-1",
		UserID:             "user-1",
		CourseID:           "course-1",
		ModuleID:           "module-1",
		LessonID:           "lesson-1",
		ProgressPercentage: 80,
		LastAccessedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := remote.UpsertLessonProgress(context.Background(), progress); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	watcher.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got models.RealtimeEvent
	if err := watcher.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != models.EventProgressSync {
		t.Errorf("expected progress_sync, got %s", got.Type)
	}
	if !got.Timestamp.Equal(progress.LastAccessedAt) {
		t.Errorf("expected event stamped with the record's last-accessed time, got %s", got.Timestamp)
	}
}
