// package formatter renders course progress reports in various formats (JSON, CSV, Markdown)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/myatdennis/coursesync/internal/models"
)

// Report is a point-in-time snapshot of a course session, assembled by the
// caller from tracker state.
type Report struct {
	UserID         string                  `json:"user_id"`
	CourseID       string                  `json:"course_id"`
	GeneratedAt    time.Time               `json:"generated_at"`
	CourseProgress int                     `json:"course_progress"`
	Stats          models.CompletionStats  `json:"completion_stats"`
	Lessons        []models.LessonProgress `json:"lessons"`
	Reflections    []models.Reflection     `json:"reflections,omitempty"`
}

// Formats supported by Render.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// Render converts a report to the requested format.
func Render(r Report, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ToJSON(r)
	case FormatCSV:
		return ToCSV(r)
	case FormatMarkdown:
		return ToMarkdown(r)
	default:
		return nil, fmt.Errorf("unknown report format: %q", format)
	}
}

// ToJSON converts a Report to indented JSON.
func ToJSON(r Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}

// ToCSV converts a Report to CSV with one row per lesson, columns:
// Lesson, Module, Status, Progress, TimeSpent, LastAccessed, CompletedAt.
func ToCSV(r Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Lesson", "Module", "Status", "Progress", "TimeSpent", "LastAccessed", "CompletedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, lesson := range r.Lessons {
		completedAt := ""
		if lesson.CompletedAt != nil {
			completedAt = lesson.CompletedAt.Format(time.RFC3339)
		}
		record := []string{
			lesson.LessonID,
			lesson.ModuleID,
			string(lesson.Status()),
			strconv.Itoa(lesson.ProgressPercentage),
			FormatTimeSpent(lesson.TimeSpentSeconds),
			lesson.LastAccessedAt.Format(time.RFC3339),
			completedAt,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown converts a Report to a Markdown document with a summary header,
// a lesson table and any reflections.
func ToMarkdown(r Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Course Progress: %s\n\n", r.CourseID))
	buf.WriteString(fmt.Sprintf("**User**: %s\n", r.UserID))
	buf.WriteString(fmt.Sprintf("**Generated**: %s\n", r.GeneratedAt.Format(time.RFC3339)))
	buf.WriteString(fmt.Sprintf("**Overall progress**: %d%%\n", r.CourseProgress))
	buf.WriteString(fmt.Sprintf("**Completed**: %d of %d lessons (%d%%)\n\n",
		r.Stats.CompletedLessons, r.Stats.TotalLessons, r.Stats.Percentage))

	buf.WriteString("## Lessons\n\n")
	if len(r.Lessons) == 0 {
		buf.WriteString("No lessons tracked yet.\n")
	} else {
		buf.WriteString("| Lesson | Module | Status | Progress | Time spent |\n")
		buf.WriteString("|--------|--------|--------|----------|------------|\n")
		for _, lesson := range r.Lessons {
			buf.WriteString(fmt.Sprintf("| %s | %s | %s | %d%% | %s |\n",
				lesson.LessonID, lesson.ModuleID, lesson.Status(),
				lesson.ProgressPercentage, FormatTimeSpent(lesson.TimeSpentSeconds)))
		}
	}

	if len(r.Reflections) > 0 {
		buf.WriteString("\n## Reflections\n\n")
		for _, ref := range r.Reflections {
			buf.WriteString(fmt.Sprintf("### %s\n\n%s\n\n", ref.LessonID, ref.Content))
		}
	}

	return buf.Bytes(), nil
}

// FormatTimeSpent renders seconds as m:ss or h:mm:ss.
func FormatTimeSpent(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// extensions maps formats to output file extensions.
var extensions = map[string]string{
	FormatJSON:     ".json",
	FormatCSV:      ".csv",
	FormatMarkdown: ".md",
}

// WriteReport renders a report and writes it to a file.
//
// Defaults to {course}_progress{ext} in the working directory when path is
// empty. Returns the path written.
func WriteReport(r Report, format, path string) (string, error) {
	data, err := Render(r, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = fmt.Sprintf("%s_progress%s", r.CourseID, extensions[format])
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}
