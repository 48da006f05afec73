package shortid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dcim-inventory-backend/internal/apperr"
	"dcim-inventory-backend/internal/model"
)

func TestPool_PrintTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	pool, db := newTestPool(t)

	_, err := pool.Generate(ctx, 5, nil)
	require.NoError(t, err)

	task, ids, err := pool.CreatePrintTask(ctx, PrintTaskRequest{Name: "batch-A", Count: 3, CreatedBy: "ops"})
	require.NoError(t, err)
	assert.Equal(t, []int64{6, 7, 8}, values(ids))
	assert.Equal(t, model.PrintTaskPending, task.Status)
	assert.Equal(t, model.MixedEntityType, task.EntityType)
	for _, v := range []int64{6, 7, 8} {
		rec := reload(t, db, v)
		assert.Equal(t, model.StatusPrinted, rec.Status)
		require.NotNil(t, rec.PrintTaskID)
		assert.Equal(t, task.ID, *rec.PrintTaskID)
		assert.NotNil(t, rec.PrintedAt)
	}

	completed, err := pool.CompletePrintTask(ctx, task.ID, "/labels/batch-A.pdf")
	require.NoError(t, err)
	assert.Equal(t, model.PrintTaskCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
	assert.Equal(t, "/labels/batch-A.pdf", completed.FilePath)

	_, err = pool.CompletePrintTask(ctx, task.ID, "")
	assert.True(t, apperr.IsInvalidState(err))
	_, err = pool.FailPrintTask(ctx, task.ID, "jam")
	assert.True(t, apperr.IsInvalidState(err))

	// Completion is an annotation on the task only.
	assert.Equal(t, model.StatusPrinted, reload(t, db, 7).Status)

	_, err = pool.CompletePrintTask(ctx, 999, "")
	assert.True(t, apperr.IsNotFound(err))
}

func TestPool_PrintTaskStartAndFail(t *testing.T) {
	ctx := context.Background()
	pool, _ := newTestPool(t)

	task, _, err := pool.CreatePrintTask(ctx, PrintTaskRequest{Name: "batch-B", Count: 2})
	require.NoError(t, err)

	started, err := pool.StartPrintTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PrintTaskPrinting, started.Status)

	_, err = pool.StartPrintTask(ctx, task.ID)
	assert.True(t, apperr.IsInvalidState(err))

	failed, err := pool.FailPrintTask(ctx, task.ID, "printer offline")
	require.NoError(t, err)
	assert.Equal(t, model.PrintTaskFailed, failed.Status)
	assert.Equal(t, "printer offline", failed.Notes)

	tasks, err := pool.ListPrintTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.PrintTaskFailed, tasks[0].Status)
}

func TestPool_CreatePrintTaskValidation(t *testing.T) {
	ctx := context.Background()
	pool, db := newTestPool(t)

	_, _, err := pool.CreatePrintTask(ctx, PrintTaskRequest{Name: "", Count: 3})
	assert.True(t, apperr.IsInvalidArgument(err))
	_, _, err = pool.CreatePrintTask(ctx, PrintTaskRequest{Name: "big", Count: 10001})
	assert.True(t, apperr.IsInvalidArgument(err))

	var tasks, ids int64
	require.NoError(t, db.Model(&model.PrintTask{}).Count(&tasks).Error)
	require.NoError(t, db.Model(&model.ShortID{}).Count(&ids).Error)
	assert.Zero(t, tasks)
	assert.Zero(t, ids)
}

func TestPrintBatches_ExportCSV(t *testing.T) {
	ctx := context.Background()
	pool, _ := newTestPool(t)
	batches := NewPrintBatches(pool)

	_, err := pool.Generate(ctx, 9, nil)
	require.NoError(t, err)
	task, _, err := pool.CreatePrintTask(ctx, PrintTaskRequest{Name: "batch-C", Count: 3})
	require.NoError(t, err)

	out, err := batches.ExportCSV(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "short_id,display_code\n10,E-00010\n11,E-00011\n12,E-00012\n", string(out))

	again, err := batches.ExportCSV(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, out, again)

	_, err = batches.ExportCSV(ctx, task.ID+1)
	assert.True(t, apperr.IsNotFound(err))
}
