package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/myatdennis/coursesync/internal/models"
	"github.com/myatdennis/coursesync/internal/shared"
)

func TestHTTPRemote_FetchEnrollment(t *testing.T) {
	enrolled := models.CourseEnrollment{
		ID:         "enr-1",
		UserID:     "user-1",
		CourseID:   "course-1",
		EnrolledAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/enrollments" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("user_id") != "user-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(enrolled)
	}))
	defer srv.Close()

	remote := NewHTTPRemote(srv.URL, nil)

	got, err := remote.FetchEnrollment(context.Background(), "user-1", "course-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != enrolled.ID || !got.EnrolledAt.Equal(enrolled.EnrolledAt) {
		t.Errorf("unexpected enrollment: %+v", got)
	}

	_, err = remote.FetchEnrollment(context.Background(), "user-2", "course-1")
	if !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing enrollment, got %v", err)
	}
}

func TestHTTPRemote_UpsertLessonProgress(t *testing.T) {
	var received models.LessonProgress
	var method string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	remote := NewHTTPRemote(srv.URL, nil)

	progress := models.LessonProgress{
		ID:                 "lp-1",
		UserID:             "user-1",
		CourseID:           "course-1",
		ModuleID:           "module-1",
		LessonID:           "lesson-1",
		ProgressPercentage: 60,
	}
	if err := remote.UpsertLessonProgress(context.Background(), progress); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if method != http.MethodPut {
		t.Errorf("expected PUT, got %s", method)
	}
	if received.LessonID != "lesson-1" || received.ProgressPercentage != 60 {
		t.Errorf("unexpected record received: %+v", received)
	}
}

func TestHTTPRemote_ServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	remote := NewHTTPRemote(srv.URL, nil)

	if _, err := remote.FetchLessonProgress(context.Background(), "u", "c"); !errors.Is(err, shared.ErrRemoteRequest) {
		t.Errorf("expected ErrRemoteRequest for 500, got %v", err)
	}
	if err := remote.UpsertReflection(context.Background(), models.Reflection{}); !errors.Is(err, shared.ErrRemoteRequest) {
		t.Errorf("expected ErrRemoteRequest for 500, got %v", err)
	}
}

func TestHTTPRemote_UnreachableHost(t *testing.T) {
	remote := NewHTTPRemote("http://127.0.0.1:1", nil)

	_, err := remote.FetchReflections(context.Background(), "u", "c")
	if !errors.Is(err, shared.ErrRemoteUnavailable) {
		t.Errorf("expected ErrRemoteUnavailable, got %v", err)
	}
}
