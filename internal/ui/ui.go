// package ui implements the live sync status TUI shown by `coursesync watch`.
//
// The view is a pure consumer of the tracker's status contract: it renders
// SessionState and the lesson table and never reaches deeper into the
// engine.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/myatdennis/coursesync/internal/models"
)

// Session is the tracker surface the TUI consumes.
type Session interface {
	State() models.SessionState
	Lessons() []models.LessonProgress
	CourseProgress() int
	CompletionStats() models.CompletionStats
	ForceSave(ctx context.Context) bool
	FlushQueue(ctx context.Context) error
	SetOnline(online bool)
}

// Model represents the watch TUI state.
type Model struct {
	ctx      context.Context
	session  Session
	courseID string

	state    models.SessionState
	lessons  []models.LessonProgress
	progress int
	stats    models.CompletionStats
	width    int

	help help.Model
	keys keyMap
}

type tickMsg time.Time

type savedMsg bool

type flushedMsg struct{ err error }

// NewModel creates a watch TUI model polling the given session.
func NewModel(ctx context.Context, session Session, courseID string) *Model {
	return &Model{
		ctx:      ctx,
		session:  session,
		courseID: courseID,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts the poll loop.
func (m *Model) Init() tea.Cmd {
	m.refresh()
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) refresh() {
	m.state = m.session.State()
	m.lessons = m.session.Lessons()
	m.progress = m.session.CourseProgress()
	m.stats = m.session.CompletionStats()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tick()

	case savedMsg, flushedMsg:
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s":
			return m, func() tea.Msg {
				return savedMsg(m.session.ForceSave(m.ctx))
			}
		case "f":
			return m, func() tea.Msg {
				return flushedMsg{err: m.session.FlushQueue(m.ctx)}
			}
		case "o":
			m.session.SetOnline(!m.state.IsOnline)
			m.refresh()
			return m, nil
		}
	}
	return m, nil
}

// View renders the status panel and lesson table.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render(fmt.Sprintf("Course %s — %d%% complete", m.courseID, m.progress)))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")
	b.WriteString(m.renderLessons())
	b.WriteString("\n\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) renderStatus() string {
	connectivity := styles.ok.Render("online")
	if !m.state.IsOnline {
		connectivity = styles.warn.Render("offline")
	}

	var sync string
	switch m.state.SyncStatus {
	case models.SyncStatusSynced:
		sync = styles.ok.Render("synced")
	case models.SyncStatusPending:
		sync = styles.warn.Render("pending")
	default:
		sync = styles.err.Render("error")
	}

	saving := ""
	if m.state.IsSaving {
		saving = "  " + styles.warn.Render("saving…")
	}

	lastSaved := "never"
	if m.state.LastSaved != nil {
		lastSaved = m.state.LastSaved.Local().Format("15:04:05")
	}

	return fmt.Sprintf("%s  •  %s%s\npending: %d  queued: %d  last saved: %s",
		connectivity, sync, saving,
		m.state.PendingChanges, m.state.QueueSize, lastSaved)
}

func (m *Model) renderLessons() string {
	if len(m.lessons) == 0 {
		return styles.help.Render("no lessons tracked yet")
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("lessons: %d/%d completed\n", m.stats.CompletedLessons, m.stats.TotalLessons))
	for _, lesson := range m.lessons {
		marker := "·"
		line := fmt.Sprintf("%s %s  %3d%%", marker, lesson.LessonID, lesson.ProgressPercentage)
		if lesson.Completed {
			line = styles.ok.Render("✓ " + lesson.LessonID + "  100%")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
