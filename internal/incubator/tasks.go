package incubator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `"id","user_id","title","notes","status","due_date","created_at","updated_at"`

type TaskRepository struct {
	DB *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{DB: db}
}

func (r *TaskRepository) Create(ctx context.Context, userID, title, notes string, dueDate *time.Time) (*Task, error) {
	id := uuid.NewString()
	row := r.DB.QueryRow(ctx, `
		INSERT INTO tasks ("id","user_id","title","notes","due_date")
		VALUES ($1,$2,$3,$4,$5)
		RETURNING `+taskColumns, id, userID, title, notes, dueDate)
	return scanTask(row)
}

// ListForUser returns the owner's tasks, newest first.
func (r *TaskRepository) ListForUser(ctx context.Context, userID string) ([]Task, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE "user_id"=$1
		ORDER BY "created_at" DESC, "id"
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

type TaskUpdate struct {
	Title   *string
	Notes   *string
	Status  *string
	DueDate *time.Time
	// ClearDueDate removes the due date; DueDate wins when both are set.
	ClearDueDate bool
}

// Update applies a partial edit scoped to the owning user; editing someone
// else's task reads as NotFound.
func (r *TaskRepository) Update(ctx context.Context, userID, id string, upd TaskUpdate) (*Task, error) {
	sets := []string{}
	args := []interface{}{}
	idx := 1

	if upd.Title != nil {
		sets = append(sets, fmt.Sprintf(`"title"=$%d`, idx))
		args = append(args, *upd.Title)
		idx++
	}
	if upd.Notes != nil {
		sets = append(sets, fmt.Sprintf(`"notes"=$%d`, idx))
		args = append(args, *upd.Notes)
		idx++
	}
	if upd.Status != nil {
		sets = append(sets, fmt.Sprintf(`"status"=$%d`, idx))
		args = append(args, *upd.Status)
		idx++
	}
	if upd.DueDate != nil {
		sets = append(sets, fmt.Sprintf(`"due_date"=$%d`, idx))
		args = append(args, *upd.DueDate)
		idx++
	} else if upd.ClearDueDate {
		sets = append(sets, `"due_date"=NULL`)
	}

	if len(sets) == 0 {
		return r.find(ctx, userID, id)
	}
	sets = append(sets, `"updated_at"=NOW()`)

	args = append(args, userID, id)
	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE "user_id"=$%d AND "id"=$%d RETURNING %s`,
		strings.Join(sets, ","), idx, idx+1, taskColumns)

	row := r.DB.QueryRow(ctx, query, args...)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return task, err
}

func (r *TaskRepository) Delete(ctx context.Context, userID, id string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM tasks WHERE "user_id"=$1 AND "id"=$2`, userID, id)
	return err
}

// DueBetween feeds the calendar: the owner's tasks with a due date inside
// [from, to].
func (r *TaskRepository) DueBetween(ctx context.Context, userID string, from, to time.Time) ([]Task, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE "user_id"=$1 AND "due_date" IS NOT NULL AND "due_date" BETWEEN $2 AND $3
		ORDER BY "due_date", "id"
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) find(ctx context.Context, userID, id string) (*Task, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE "user_id"=$1 AND "id"=$2
	`, userID, id)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return task, err
}

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	if err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Notes,
		&t.Status,
		&t.DueDate,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
