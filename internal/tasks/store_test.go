package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdesk/internal/models"
	"taskdesk/internal/storage"
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func newTestStore(t *testing.T) (*Store, *storage.Memory, *fixedClock) {
	t.Helper()
	kv := storage.NewMemory()
	clock := &fixedClock{t: time.Date(2024, time.May, 1, 10, 0, 0, 0, time.Local)}
	return Open(context.Background(), kv, nil, WithClock(clock.Now)), kv, clock
}

func persisted(t *testing.T, kv *storage.Memory) []models.Task {
	t.Helper()
	raw, ok, err := kv.Get(context.Background(), storage.TasksKey)
	require.NoError(t, err)
	require.True(t, ok, "collection was never written")
	var out []models.Task
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func assertCompletedInvariant(t *testing.T, tasks []models.Task) {
	t.Helper()
	for _, task := range tasks {
		assert.Equal(t, task.Status == models.StatusCompleted, task.CompletedAt != nil, "task %s", task.ID)
	}
}

func TestOpenToleratesMissingAndCorruptSlot(t *testing.T) {
	ctx := context.Background()

	empty := Open(ctx, storage.NewMemory(), nil)
	assert.Empty(t, empty.All())

	kv := storage.NewMemory()
	require.NoError(t, kv.Set(ctx, storage.TasksKey, "{not json"))
	corrupt := Open(ctx, kv, nil)
	assert.NotNil(t, corrupt.All())
	assert.Empty(t, corrupt.All())
}

func TestOpenNormalizesStoredTasks(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(ctx, storage.TasksKey, `[{"id":"x","title":"legacy","status":"pending","dueDate":""}]`))

	s := Open(ctx, kv, nil)
	got, ok := s.Get("x")
	require.True(t, ok)
	assert.NotNil(t, got.Tags)
	assert.NotNil(t, got.ProgressHistory)
	assert.Nil(t, got.DueDate)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestAdd(t *testing.T) {
	s, kv, clock := newTestStore(t)
	due, err := models.ParseLocalTime("2024-05-03T18:00")
	require.NoError(t, err)

	task, err := s.Add(context.Background(), NewTask{
		Title:       `<script>alert("x")</script>`,
		Description: "it's fine",
		Category:    "work/home",
		Tags:        []string{"a<b", "a<b"},
		DueDate:     due,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "&lt;script&gt;alert(&quot;x&quot;)&lt;&#x2F;script&gt;", task.Title)
	assert.Equal(t, "it&#x27;s fine", task.Description)
	assert.Equal(t, "work&#x2F;home", task.Category)
	assert.Equal(t, []string{"a&lt;b", "a&lt;b"}, task.Tags)
	assert.Equal(t, models.StatusInProgress, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Equal(t, models.TaskTypeGeneral, task.TaskType)
	assert.Equal(t, clock.t, task.CreatedAt)
	assert.Nil(t, task.CompletedAt)
	assert.NotNil(t, task.ProgressHistory)
	assert.Empty(t, task.ProgressHistory)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, "2024-05-03T18:00", task.DueDate.String())

	stored := persisted(t, kv)
	require.Len(t, stored, 1)
	assert.Equal(t, task.ID, stored[0].ID)
}

func TestAddAssignsUniqueIDs(t *testing.T) {
	s, _, _ := newTestStore(t)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		task, err := s.Add(context.Background(), NewTask{Title: "same"})
		require.NoError(t, err)
		assert.False(t, seen[task.ID], "duplicate id %s", task.ID)
		seen[task.ID] = true
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	s, kv, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, NewTask{Title: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.Add(ctx, NewTask{Title: "x", Priority: "critical"})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, s.All())
	_, ok, _ := kv.Get(ctx, storage.TasksKey)
	assert.False(t, ok, "rejected input must not be persisted")
}

func TestUpdate(t *testing.T) {
	s, kv, _ := newTestStore(t)
	ctx := context.Background()
	task, err := s.Add(ctx, NewTask{Title: "draft"})
	require.NoError(t, err)

	title := "<b>final</b>"
	prio := models.PriorityHigh
	tags := []string{"q2"}
	require.NoError(t, s.Update(ctx, task.ID, Patch{Title: &title, Priority: &prio, Tags: &tags}))

	got, ok := s.Get(task.ID)
	require.True(t, ok)
	// Open question kept as-is: Update stores text unescaped while Add escapes it.
	assert.Equal(t, "<b>final</b>", got.Title)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, []string{"q2"}, got.Tags)
	assert.Equal(t, task.CreatedAt, got.CreatedAt)
	assert.Equal(t, "<b>final</b>", persisted(t, kv)[0].Title)
}

func TestUpdateKeepsCompletedAtInvariant(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	task, err := s.Add(ctx, NewTask{Title: "flip"})
	require.NoError(t, err)

	completed := models.StatusCompleted
	require.NoError(t, s.Update(ctx, task.ID, Patch{Status: &completed}))
	got, _ := s.Get(task.ID)
	assert.NotNil(t, got.CompletedAt)

	pending := models.StatusPending
	require.NoError(t, s.Update(ctx, task.ID, Patch{Status: &pending}))
	got, _ = s.Get(task.ID)
	assert.Nil(t, got.CompletedAt)

	assertCompletedInvariant(t, s.All())
}

func TestUpdateDueDate(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	task, err := s.Add(ctx, NewTask{Title: "due"})
	require.NoError(t, err)

	due, _ := models.ParseLocalTime("2024-06-01T09:30")
	require.NoError(t, s.Update(ctx, task.ID, Patch{DueDate: due}))
	got, _ := s.Get(task.ID)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2024-06-01T09:30", got.DueDate.String())

	require.NoError(t, s.Update(ctx, task.ID, Patch{ClearDueDate: true}))
	got, _ = s.Get(task.ID)
	assert.Nil(t, got.DueDate)
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	task, err := s.Add(ctx, NewTask{Title: "x"})
	require.NoError(t, err)

	bogus := models.Status("archived")
	assert.ErrorIs(t, s.Update(ctx, task.ID, Patch{Status: &bogus}), ErrValidation)
	got, _ := s.Get(task.ID)
	assert.Equal(t, models.StatusInProgress, got.Status)
}

func TestUnknownIDIsNoop(t *testing.T) {
	s, kv, _ := newTestStore(t)
	ctx := context.Background()
	task, err := s.Add(ctx, NewTask{Title: "keep"})
	require.NoError(t, err)
	before := persisted(t, kv)

	title := "changed"
	require.NoError(t, s.Update(ctx, "missing", Patch{Title: &title}))
	require.NoError(t, s.Delete(ctx, "missing"))
	require.NoError(t, s.Complete(ctx, "missing"))
	require.NoError(t, s.AddProgress(ctx, "missing", "note"))

	assert.Equal(t, before, persisted(t, kv))
	got, ok := s.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, "keep", got.Title)
}

func TestDelete(t *testing.T) {
	s, kv, _ := newTestStore(t)
	ctx := context.Background()
	a, _ := s.Add(ctx, NewTask{Title: "a"})
	b, _ := s.Add(ctx, NewTask{Title: "b"})

	require.NoError(t, s.Delete(ctx, a.ID))

	_, ok := s.Get(a.ID)
	assert.False(t, ok)
	all := s.All()
	require.Len(t, all, 1)
	assert.Equal(t, b.ID, all[0].ID)
	assert.Len(t, persisted(t, kv), 1)
}

func TestCompleteAndViews(t *testing.T) {
	s, _, clock := newTestStore(t)
	ctx := context.Background()
	a, _ := s.Add(ctx, NewTask{Title: "a"})
	b, _ := s.Add(ctx, NewTask{Title: "b"})

	clock.t = clock.t.Add(time.Hour)
	require.NoError(t, s.Complete(ctx, a.ID))

	got, _ := s.Get(a.ID)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, clock.t, *got.CompletedAt)

	require.Len(t, s.Active(), 1)
	assert.Equal(t, b.ID, s.Active()[0].ID)
	require.Len(t, s.Completed(), 1)
	assert.Equal(t, a.ID, s.Completed()[0].ID)
	assertCompletedInvariant(t, s.All())
}

func TestAddProgress(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	for _, start := range []models.Status{models.StatusPending, models.StatusInProgress, models.StatusCompleted} {
		t.Run(string(start), func(t *testing.T) {
			task, err := s.Add(ctx, NewTask{Title: "p"})
			require.NoError(t, err)
			st := start
			require.NoError(t, s.Update(ctx, task.ID, Patch{Status: &st}))
			before, _ := s.Get(task.ID)

			require.NoError(t, s.AddProgress(ctx, task.ID, "half <done>"))

			after, _ := s.Get(task.ID)
			assert.Equal(t, models.StatusInProgress, after.Status)
			assert.Nil(t, after.CompletedAt)
			require.Len(t, after.ProgressHistory, len(before.ProgressHistory)+1)
			entry := after.ProgressHistory[len(after.ProgressHistory)-1]
			assert.Equal(t, "half &lt;done&gt;", entry.Text)
			assert.NotEmpty(t, entry.ID)
		})
	}
}

func TestAddProgressAppendsInOrder(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	task, _ := s.Add(ctx, NewTask{Title: "p"})

	require.NoError(t, s.AddProgress(ctx, task.ID, "first"))
	require.NoError(t, s.AddProgress(ctx, task.ID, "second"))

	got, _ := s.Get(task.ID)
	require.Len(t, got.ProgressHistory, 2)
	assert.Equal(t, "first", got.ProgressHistory[0].Text)
	assert.Equal(t, "second", got.ProgressHistory[1].Text)
}

func TestFailedWriteRollsBack(t *testing.T) {
	s, kv, _ := newTestStore(t)
	ctx := context.Background()
	task, err := s.Add(ctx, NewTask{Title: "safe"})
	require.NoError(t, err)

	kv.FailWrites = errors.New("quota exceeded")

	_, err = s.Add(ctx, NewTask{Title: "lost"})
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, s.Complete(ctx, task.ID), ErrStorage)
	assert.ErrorIs(t, s.Delete(ctx, task.ID), ErrStorage)

	all := s.All()
	require.Len(t, all, 1)
	assert.Equal(t, models.StatusInProgress, all[0].Status)
}

func TestReturnedTasksAreCopies(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	task, _ := s.Add(ctx, NewTask{Title: "t", Tags: []string{"a"}})

	all := s.All()
	all[0].Tags[0] = "mutated"
	all[0].Title = "mutated"

	got, _ := s.Get(task.ID)
	assert.Equal(t, "t", got.Title)
	assert.Equal(t, []string{"a"}, got.Tags)
}

func TestImport(t *testing.T) {
	s, kv, _ := newTestStore(t)
	ctx := context.Background()
	_, err := s.Add(ctx, NewTask{Title: "old"})
	require.NoError(t, err)

	doc := `[
  {"id": "i1", "title": "imported", "status": "pending", "priority": "low", "tags": null},
  {"id": "i2", "title": "done", "status": "completed", "completedAt": "2024-04-30T10:00:00Z"}
]`
	n, err := s.Import(ctx, strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "i1", all[0].ID)
	assert.Equal(t, models.StatusPending, all[0].Status)
	assert.NotNil(t, all[0].Tags)
	assert.Len(t, persisted(t, kv), 2)
}

func TestImportRejectsNonArray(t *testing.T) {
	s, kv, _ := newTestStore(t)
	ctx := context.Background()
	_, err := s.Add(ctx, NewTask{Title: "keep me"})
	require.NoError(t, err)
	before := persisted(t, kv)

	for _, doc := range []string{`{"tasks": []}`, `"text"`, `42`, `not json`, ``, `[1, 2]`} {
		_, err := s.Import(ctx, strings.NewReader(doc))
		assert.ErrorIs(t, err, ErrValidation, "doc %q", doc)
	}

	_, err = s.Import(ctx, strings.NewReader(`{"a": 1}`))
	assert.ErrorIs(t, err, ErrInvalidFormat)

	assert.Equal(t, before, persisted(t, kv))
	require.Len(t, s.All(), 1)
	assert.Equal(t, "keep me", s.All()[0].Title)
}

func TestImportRejectsMistypedElement(t *testing.T) {
	s, kv, _ := newTestStore(t)
	ctx := context.Background()
	_, err := s.Add(ctx, NewTask{Title: "keep me"})
	require.NoError(t, err)
	before := persisted(t, kv)

	doc := `[{"id": "ok", "title": "fine"}, {"id": "bad", "title": 7}]`
	_, err = s.Import(ctx, strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrInvalidFormat)

	assert.Equal(t, before, persisted(t, kv))
	require.Len(t, s.All(), 1)
	assert.Equal(t, "keep me", s.All()[0].Title)
}

func TestExportRoundTrip(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	_, err := s.Add(ctx, NewTask{Title: "one", Tags: []string{"x"}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.Export(&buf))
	assert.Contains(t, buf.String(), "\n  {")

	back, err := ReadBackup(&buf)
	require.NoError(t, err)
	orig := s.All()
	require.Len(t, back, 1)
	assert.Equal(t, orig[0].ID, back[0].ID)
	assert.Equal(t, orig[0].Title, back[0].Title)
	assert.Equal(t, orig[0].Tags, back[0].Tags)
	assert.True(t, orig[0].CreatedAt.Equal(back[0].CreatedAt))
}

func TestBackupFilename(t *testing.T) {
	assert.Equal(t, "tasks-backup-2024-05-01.json", BackupFilename(time.Date(2024, time.May, 1, 23, 0, 0, 0, time.UTC)))
}
