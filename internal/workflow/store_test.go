package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-copilot/internal/models"
)

func TestMemoryStoreInsertGet(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Insert(models.Job{JobID: "a", Status: models.JobProcessing, Step: models.StepInitializing}))
	assert.ErrorIs(t, store.Insert(models.Job{JobID: "a"}), ErrJobExists)

	job, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, models.StepInitializing, job.Step)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestMemoryStoreUpdate(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Insert(models.Job{JobID: "a", Status: models.JobProcessing, Step: models.StepInitializing}))

	require.NoError(t, store.Update("a", func(job *models.Job) error {
		job.Step = models.StepAnalyzingLogs
		return nil
	}))
	job, _ := store.Get("a")
	assert.Equal(t, models.StepAnalyzingLogs, job.Step)

	// A rejected update leaves the record untouched.
	err := store.Update("a", func(job *models.Job) error {
		job.Step = "half-written"
		return errors.New("rejected")
	})
	require.Error(t, err)
	job, _ = store.Get("a")
	assert.Equal(t, models.StepAnalyzingLogs, job.Step)

	assert.ErrorIs(t, store.Update("missing", func(*models.Job) error { return nil }), ErrJobNotFound)
}

func TestMemoryStoreSnapshotsAreCopies(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Insert(models.Job{JobID: "a", Status: models.JobProcessing}))

	job, _ := store.Get("a")
	job.Status = models.JobFailed

	list := store.List()
	list[0].Step = "mutated"

	fresh, _ := store.Get("a")
	assert.Equal(t, models.JobProcessing, fresh.Status)
	assert.Empty(t, fresh.Step)
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, models.JobProcessing.Terminal())
	assert.True(t, models.JobCompleted.Terminal())
	assert.True(t, models.JobFailed.Terminal())
}
