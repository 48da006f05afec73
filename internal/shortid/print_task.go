package shortid

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"dcim-inventory-backend/internal/apperr"
	"dcim-inventory-backend/internal/model"
)

// PrintTaskRequest describes a new label printing run.
type PrintTaskRequest struct {
	Name      string
	Count     int
	CreatedBy string
	Notes     string
}

// CreatePrintTask allocates req.Count fresh values as PRINTED and links them
// to a new PENDING task. Either the task and every id exist afterwards, or
// nothing does.
func (p *Pool) CreatePrintTask(ctx context.Context, req PrintTaskRequest) (model.PrintTask, []model.ShortID, error) {
	if req.Name == "" {
		return model.PrintTask{}, nil, apperr.InvalidField("name", "must not be empty")
	}
	if err := p.validateCount(req.Count); err != nil {
		return model.PrintTask{}, nil, err
	}

	var (
		task    model.PrintTask
		records []model.ShortID
	)
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := p.now()
		task = model.PrintTask{
			Name:       req.Name,
			EntityType: model.MixedEntityType,
			Count:      req.Count,
			Status:     model.PrintTaskPending,
			CreatedBy:  req.CreatedBy,
			Notes:      req.Notes,
			CreatedAt:  now,
		}
		if err := tx.Create(&task).Error; err != nil {
			return fmt.Errorf("failed to create print task: %w", err)
		}

		taskID := task.ID
		var err error
		records, err = p.allocate(tx, req.Count, func(r *model.ShortID) {
			r.Status = model.StatusPrinted
			r.PrintTaskID = &taskID
			r.PrintedAt = &now
		})
		return err
	})
	if err != nil {
		return model.PrintTask{}, nil, err
	}

	p.log.Info().
		Int64("task_id", task.ID).
		Str("name", task.Name).
		Int("count", task.Count).
		Msg("print task created")
	return task, records, nil
}

// StartPrintTask marks a pending task as printing.
func (p *Pool) StartPrintTask(ctx context.Context, taskID int64) (model.PrintTask, error) {
	return p.transitionTask(ctx, taskID, "start",
		[]model.PrintTaskStatus{model.PrintTaskPending},
		map[string]any{"status": model.PrintTaskPrinting})
}

// CompletePrintTask marks a task COMPLETED. The status of its ids is not
// touched: they stay PRINTED until bound or cancelled.
func (p *Pool) CompletePrintTask(ctx context.Context, taskID int64, filePath string) (model.PrintTask, error) {
	updates := map[string]any{
		"status":       model.PrintTaskCompleted,
		"completed_at": p.now(),
	}
	if filePath != "" {
		updates["file_path"] = filePath
	}
	return p.transitionTask(ctx, taskID, "complete",
		[]model.PrintTaskStatus{model.PrintTaskPending, model.PrintTaskPrinting}, updates)
}

// FailPrintTask marks a task FAILED. Its ids stay PRINTED and may be bound or
// cancelled individually.
func (p *Pool) FailPrintTask(ctx context.Context, taskID int64, reason string) (model.PrintTask, error) {
	updates := map[string]any{
		"status":       model.PrintTaskFailed,
		"completed_at": p.now(),
	}
	if reason != "" {
		updates["notes"] = reason
	}
	return p.transitionTask(ctx, taskID, "fail",
		[]model.PrintTaskStatus{model.PrintTaskPending, model.PrintTaskPrinting}, updates)
}

func (p *Pool) transitionTask(ctx context.Context, taskID int64, op string, from []model.PrintTaskStatus, updates map[string]any) (model.PrintTask, error) {
	var task model.PrintTask
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.PrintTask{}).
			Where("id = ? AND status IN ?", taskID, from).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to %s print task %d: %w", op, taskID, res.Error)
		}

		var err error
		task, err = findTask(tx, taskID)
		if err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			return &apperr.InvalidStateError{
				Resource: "print task",
				ID:       strconv.FormatInt(taskID, 10),
				State:    string(task.Status),
				Op:       op,
			}
		}
		return nil
	})
	if err != nil {
		return model.PrintTask{}, err
	}

	p.log.Info().Int64("task_id", taskID).Str("status", string(task.Status)).Msg("print task updated")
	return task, nil
}

// GetPrintTask returns a single task.
func (p *Pool) GetPrintTask(ctx context.Context, taskID int64) (model.PrintTask, error) {
	return findTask(p.db.WithContext(ctx), taskID)
}

func findTask(tx *gorm.DB, taskID int64) (model.PrintTask, error) {
	var task model.PrintTask
	if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return task, apperr.PrintTaskNotFound(taskID)
		}
		return task, fmt.Errorf("failed to load print task %d: %w", taskID, err)
	}
	return task, nil
}

// ListPrintTasks returns every task, newest first.
func (p *Pool) ListPrintTasks(ctx context.Context) ([]model.PrintTask, error) {
	var tasks []model.PrintTask
	if err := p.db.WithContext(ctx).Order("id DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list print tasks: %w", err)
	}
	return tasks, nil
}

// PrintBatches produces label printer input for print tasks.
type PrintBatches struct {
	pool *Pool
}

// NewPrintBatches creates a PrintBatches over pool.
func NewPrintBatches(pool *Pool) *PrintBatches {
	return &PrintBatches{pool: pool}
}

// ExportCSV renders a task's ids as CSV, one row per id in ascending order.
// The output depends only on the task's ids, so repeated exports are
// byte-identical.
func (b *PrintBatches) ExportCSV(ctx context.Context, taskID int64) ([]byte, error) {
	var values []int64
	if err := b.pool.db.WithContext(ctx).
		Model(&model.ShortID{}).
		Where("print_task_id = ?", taskID).
		Order("value ASC").
		Pluck("value", &values).Error; err != nil {
		return nil, fmt.Errorf("failed to load ids of print task %d: %w", taskID, err)
	}
	if len(values) == 0 {
		return nil, apperr.PrintTaskNotFound(taskID)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"short_id", "display_code"}); err != nil {
		return nil, err
	}
	for _, v := range values {
		if err := w.Write([]string{strconv.FormatInt(v, 10), b.pool.codec.Format(v)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}
