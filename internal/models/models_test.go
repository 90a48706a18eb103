package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestLessonProgressApply(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("merges partial fields and bumps last accessed", func(t *testing.T) {
		p := LessonProgress{UserID: "user-1", CourseID: "course-1", LessonID: "lesson-1"}
		p.Apply(ProgressFields{ProgressPercentage: Int(40), TimeSpentSeconds: Int(120)}, now)

		if p.ProgressPercentage != 40 {
			t.Errorf("expected 40%%, got %d", p.ProgressPercentage)
		}
		if p.TimeSpentSeconds != 120 {
			t.Errorf("expected 120s, got %d", p.TimeSpentSeconds)
		}
		if !p.LastAccessedAt.Equal(now) {
			t.Errorf("expected last accessed %v, got %v", now, p.LastAccessedAt)
		}
	})

	t.Run("clamps percentage", func(t *testing.T) {
		cases := []struct {
			in   int
			want int
		}{
			{150, 100},
			{-10, 0},
			{55, 55},
		}
		for _, c := range cases {
			p := LessonProgress{}
			p.Apply(ProgressFields{ProgressPercentage: Int(c.in)}, now)
			if p.ProgressPercentage != c.want {
				t.Errorf("Apply(pct=%d) = %d, want %d", c.in, p.ProgressPercentage, c.want)
			}
		}
	})

	t.Run("time spent never decreases", func(t *testing.T) {
		p := LessonProgress{TimeSpentSeconds: 300}
		p.Apply(ProgressFields{TimeSpentSeconds: Int(200)}, now)
		if p.TimeSpentSeconds != 300 {
			t.Errorf("expected time spent to stay at 300, got %d", p.TimeSpentSeconds)
		}
	})

	t.Run("completion forces full percentage and stamps completed at", func(t *testing.T) {
		p := LessonProgress{ProgressPercentage: 40}
		p.Apply(ProgressFields{Completed: Bool(true)}, now)

		if p.ProgressPercentage != 100 {
			t.Errorf("expected 100%% on completion, got %d", p.ProgressPercentage)
		}
		if p.CompletedAt == nil || !p.CompletedAt.Equal(now) {
			t.Errorf("expected completed at %v, got %v", now, p.CompletedAt)
		}
	})
}

func TestLessonProgressValidate(t *testing.T) {
	base := LessonProgress{UserID: "user-1", CourseID: "course-1", LessonID: "lesson-1"}

	cases := []struct {
		name   string
		mutate func(*LessonProgress)
		valid  bool
	}{
		{"valid record", func(p *LessonProgress) {}, true},
		{"missing identity", func(p *LessonProgress) { p.UserID = "" }, false},
		{"percentage over 100", func(p *LessonProgress) { p.ProgressPercentage = 120 }, false},
		{"completed below 100", func(p *LessonProgress) { p.Completed = true; p.ProgressPercentage = 80 }, false},
		{"negative time spent", func(p *LessonProgress) { p.TimeSpentSeconds = -1 }, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := base
			c.mutate(&p)
			err := p.Validate()
			if c.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !c.valid && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestQueuedMutation(t *testing.T) {
	t.Run("dedup key ignores payload and priority", func(t *testing.T) {
		a := QueuedMutation{UserID: "u", CourseID: "c", LessonID: "l", Action: ActionProgressUpdate, Priority: PriorityLow}
		b := QueuedMutation{UserID: "u", CourseID: "c", LessonID: "l", Action: ActionProgressUpdate, Priority: PriorityHigh}
		if a.DedupKey() != b.DedupKey() {
			t.Error("expected identical dedup keys")
		}

		c := a
		c.Action = ActionLessonComplete
		if a.DedupKey() == c.DedupKey() {
			t.Error("expected distinct actions to key separately")
		}
	})

	t.Run("validate rejects unknown action", func(t *testing.T) {
		m := QueuedMutation{ID: "m-1", UserID: "u", CourseID: "c", LessonID: "l", Action: "rewind"}
		if err := m.Validate(); err == nil {
			t.Error("expected error for unknown action")
		}
	})
}

func TestPriorityJSON(t *testing.T) {
	data, err := json.Marshal(PriorityHigh)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"high"` {
		t.Errorf("expected \"high\", got %s", data)
	}

	var p Priority
	if err := json.Unmarshal([]byte(`"medium"`), &p); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if p != PriorityMedium {
		t.Errorf("expected PriorityMedium, got %v", p)
	}

	if err := json.Unmarshal([]byte(`"urgent"`), &p); err == nil {
		t.Error("expected error for unknown priority name")
	}
}

func TestProgressFieldsMerge(t *testing.T) {
	first := ProgressFields{ProgressPercentage: Int(30), TimeSpentSeconds: Int(60)}
	second := ProgressFields{ProgressPercentage: Int(45)}

	merged := first.Merge(second)
	if *merged.ProgressPercentage != 45 {
		t.Errorf("expected later percentage to win, got %d", *merged.ProgressPercentage)
	}
	if *merged.TimeSpentSeconds != 60 {
		t.Errorf("expected untouched field to survive, got %d", *merged.TimeSpentSeconds)
	}
}
