package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/myatdennis/coursesync/internal/models"
	"github.com/myatdennis/coursesync/internal/shared"
)

// HTTPRemote implements RemoteStore against the progress backend's REST API.
type HTTPRemote struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPRemote creates a RemoteStore client for the given base URL.
// The client defaults to [http.DefaultClient]; pass the client returned by
// [NewTokenClient] to authenticate requests.
func NewHTTPRemote(baseURL string, client *http.Client) *HTTPRemote {
	if baseURL == "" {
		baseURL = "http://localhost:8787"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPRemote{
		baseURL:    baseURL,
		httpClient: client,
	}
}

// FetchEnrollment retrieves the enrollment for a user and course.
func (r *HTTPRemote) FetchEnrollment(ctx context.Context, userID, courseID string) (*models.CourseEnrollment, error) {
	var enrollment models.CourseEnrollment
	err := r.getJSON(ctx, "/api/enrollments", url.Values{
		"user_id":   {userID},
		"course_id": {courseID},
	}, &enrollment)
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FetchLessonProgress retrieves all lesson progress records for a user and course.
func (r *HTTPRemote) FetchLessonProgress(ctx context.Context, userID, courseID string) ([]models.LessonProgress, error) {
	var records []models.LessonProgress
	err := r.getJSON(ctx, "/api/progress", url.Values{
		"user_id":   {userID},
		"course_id": {courseID},
	}, &records)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// FetchReflections retrieves all reflections for a user and course.
func (r *HTTPRemote) FetchReflections(ctx context.Context, userID, courseID string) ([]models.Reflection, error) {
	var reflections []models.Reflection
	err := r.getJSON(ctx, "/api/reflections", url.Values{
		"user_id":   {userID},
		"course_id": {courseID},
	}, &reflections)
	if err != nil {
		return nil, err
	}
	return reflections, nil
}

// UpsertEnrollment creates or replaces an enrollment.
func (r *HTTPRemote) UpsertEnrollment(ctx context.Context, enrollment models.CourseEnrollment) error {
	return r.putJSON(ctx, "/api/enrollments", enrollment)
}

// UpsertLessonProgress creates or replaces a lesson progress record.
func (r *HTTPRemote) UpsertLessonProgress(ctx context.Context, progress models.LessonProgress) error {
	return r.putJSON(ctx, "/api/progress", progress)
}

// UpsertReflection creates or replaces a reflection.
func (r *HTTPRemote) UpsertReflection(ctx context.Context, reflection models.Reflection) error {
	return r.putJSON(ctx, "/api/reflections", reflection)
}

// getJSON performs a GET request and decodes the JSON response into out.
func (r *HTTPRemote) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	fullURL := r.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", shared.ErrNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned status %d", shared.ErrRemoteRequest, path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: invalid response body: %v", shared.ErrRemoteRequest, err)
	}

	return nil
}

// putJSON performs an idempotent PUT of the given record.
func (r *HTTPRemote) putJSON(ctx context.Context, path string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned status %d", shared.ErrRemoteRequest, path, resp.StatusCode)
	}

	return nil
}
