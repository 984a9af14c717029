package incubator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const trainingColumns = `t."id",t."title",t."description",t."starts_at",t."location",t."capacity",
	(SELECT COUNT(*) FROM training_enrollments e WHERE e."training_id"=t."id") AS enrolled,
	t."created_at",t."updated_at"`

type TrainingRepository struct {
	DB *pgxpool.Pool
}

func NewTrainingRepository(db *pgxpool.Pool) *TrainingRepository {
	return &TrainingRepository{DB: db}
}

func (r *TrainingRepository) Create(ctx context.Context, title, description string, startsAt time.Time, location string, capacity int) (*Training, error) {
	id := uuid.NewString()
	row := r.DB.QueryRow(ctx, `
		INSERT INTO trainings ("id","title","description","starts_at","location","capacity")
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING "id","title","description","starts_at","location","capacity",0,"created_at","updated_at"
	`, id, title, description, startsAt, location, capacity)
	return scanTraining(row)
}

func (r *TrainingRepository) Find(ctx context.Context, id string) (*Training, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+trainingColumns+` FROM trainings t WHERE t."id"=$1
	`, id)
	training, err := scanTraining(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return training, err
}

// ListUpcoming returns trainings starting at or after the given time,
// soonest first.
func (r *TrainingRepository) ListUpcoming(ctx context.Context, from time.Time) ([]Training, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+trainingColumns+`
		FROM trainings t
		WHERE t."starts_at" >= $1
		ORDER BY t."starts_at", t."id"
	`, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrainings(rows)
}

func (r *TrainingRepository) ListAll(ctx context.Context) ([]Training, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+trainingColumns+`
		FROM trainings t
		ORDER BY t."starts_at" DESC, t."id"
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrainings(rows)
}

type TrainingUpdate struct {
	Title       *string
	Description *string
	StartsAt    *time.Time
	Location    *string
	Capacity    *int
}

func (r *TrainingRepository) Update(ctx context.Context, id string, upd TrainingUpdate) (*Training, error) {
	sets := []string{}
	args := []interface{}{}
	idx := 1

	if upd.Title != nil {
		sets = append(sets, fmt.Sprintf(`"title"=$%d`, idx))
		args = append(args, *upd.Title)
		idx++
	}
	if upd.Description != nil {
		sets = append(sets, fmt.Sprintf(`"description"=$%d`, idx))
		args = append(args, *upd.Description)
		idx++
	}
	if upd.StartsAt != nil {
		sets = append(sets, fmt.Sprintf(`"starts_at"=$%d`, idx))
		args = append(args, *upd.StartsAt)
		idx++
	}
	if upd.Location != nil {
		sets = append(sets, fmt.Sprintf(`"location"=$%d`, idx))
		args = append(args, *upd.Location)
		idx++
	}
	if upd.Capacity != nil {
		sets = append(sets, fmt.Sprintf(`"capacity"=$%d`, idx))
		args = append(args, *upd.Capacity)
		idx++
	}

	if len(sets) == 0 {
		return r.Find(ctx, id)
	}
	sets = append(sets, `"updated_at"=NOW()`)

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE trainings t SET %s WHERE t."id"=$%d
		RETURNING %s`, strings.Join(sets, ","), idx, trainingColumns)

	row := r.DB.QueryRow(ctx, query, args...)
	training, err := scanTraining(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return training, err
}

func (r *TrainingRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM trainings WHERE "id"=$1`, id)
	return err
}

// Enroll adds the user to a training. Capacity is checked against the
// current enrollment count; the unique constraint is the authority on
// double enrollment.
func (r *TrainingRepository) Enroll(ctx context.Context, trainingID, userID string) error {
	training, err := r.Find(ctx, trainingID)
	if err != nil {
		return err
	}
	if training.Capacity > 0 && training.Enrolled >= training.Capacity {
		return ErrTrainingFull
	}

	_, err = r.DB.Exec(ctx, `
		INSERT INTO training_enrollments ("id","training_id","user_id")
		VALUES ($1,$2,$3)
	`, uuid.NewString(), trainingID, userID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return ErrAlreadyEnrolled
		case pgerrcode.ForeignKeyViolation:
			return ErrNotFound
		}
	}
	return err
}

func (r *TrainingRepository) Withdraw(ctx context.Context, trainingID, userID string) error {
	_, err := r.DB.Exec(ctx, `
		DELETE FROM training_enrollments WHERE "training_id"=$1 AND "user_id"=$2
	`, trainingID, userID)
	return err
}

// StartingBetween feeds the calendar with trainings the user is enrolled in.
func (r *TrainingRepository) StartingBetween(ctx context.Context, userID string, from, to time.Time) ([]Training, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+trainingColumns+`
		FROM trainings t
		INNER JOIN training_enrollments e ON e."training_id"=t."id"
		WHERE e."user_id"=$1 AND t."starts_at" BETWEEN $2 AND $3
		ORDER BY t."starts_at", t."id"
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrainings(rows)
}

func collectTrainings(rows pgx.Rows) ([]Training, error) {
	var trainings []Training
	for rows.Next() {
		training, err := scanTraining(rows)
		if err != nil {
			return nil, err
		}
		trainings = append(trainings, *training)
	}
	return trainings, rows.Err()
}

func scanTraining(row pgx.Row) (*Training, error) {
	var t Training
	if err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.StartsAt,
		&t.Location,
		&t.Capacity,
		&t.Enrolled,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
