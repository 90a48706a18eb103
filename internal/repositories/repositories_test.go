package repositories

import (
	"encoding/json"
	"testing"

	"github.com/myatdennis/coursesync/internal/models"
	"github.com/myatdennis/coursesync/internal/shared"
)

func setupTestDB(t *testing.T) *KVRepository {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return NewKVRepository(db, nil)
}

func TestKVRepository_ReadWrite(t *testing.T) {
	repo := setupTestDB(t)

	if _, ok := repo.Read("progress:u:c"); ok {
		t.Error("expected absent for missing key")
	}

	if ok := repo.Write("progress:u:c", []byte(`{"v":1}`)); !ok {
		t.Fatal("write failed")
	}

	data, ok := repo.Read("progress:u:c")
	if !ok || string(data) != `{"v":1}` {
		t.Errorf("unexpected read: %s (ok=%v)", data, ok)
	}

	// Upsert replaces, not appends.
	if ok := repo.Write("progress:u:c", []byte(`{"v":2}`)); !ok {
		t.Fatal("second write failed")
	}
	data, _ = repo.Read("progress:u:c")
	if string(data) != `{"v":2}` {
		t.Errorf("expected upsert to replace, got %s", data)
	}
}

func TestKVRepository_Delete(t *testing.T) {
	repo := setupTestDB(t)

	repo.Write("queue:u", []byte(`[]`))
	if err := repo.Delete("queue:u"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := repo.Read("queue:u"); ok {
		t.Error("expected absent after delete")
	}
}

func TestFailureRepository_RecordAndList(t *testing.T) {
	kv := setupTestDB(t)
	repo := NewFailureRepository(kv.db)

	payload, _ := json.Marshal(map[string]int{"progress_percentage": 50})
	m := models.QueuedMutation{
		ID:       "mut-1",
		UserID:   "user-1",
		CourseID: "course-1",
		LessonID: "lesson-1",
		Action:   models.ActionProgressUpdate,
		Payload:  payload,
		Attempts: 3,
	}

	if err := repo.Record(m); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	failures, err := repo.List("user-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	got := failures[0].Mutation
	if got.ID != "mut-1" || got.Action != models.ActionProgressUpdate || got.Attempts != 3 {
		t.Errorf("unexpected failure record: %+v", got)
	}

	if err := repo.Clear("user-1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	failures, _ = repo.List("user-1")
	if len(failures) != 0 {
		t.Errorf("expected empty after clear, got %d", len(failures))
	}
}
