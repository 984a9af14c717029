package incubator

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationColumns = `"id","user_id","business_name","contact_email","pdf_filename","pdf_path","status","notes","created_at","updated_at"`

type ApplicationRepository struct {
	DB *pgxpool.Pool
}

func NewApplicationRepository(db *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{DB: db}
}

func (r *ApplicationRepository) Create(ctx context.Context, userID *string, businessName, contactEmail, pdfFilename, pdfPath string) (*Application, error) {
	id := uuid.NewString()
	row := r.DB.QueryRow(ctx, `
		INSERT INTO applications ("id","user_id","business_name","contact_email","pdf_filename","pdf_path")
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING `+applicationColumns, id, userID, businessName, contactEmail, pdfFilename, pdfPath)
	return scanApplication(row)
}

func (r *ApplicationRepository) Find(ctx context.Context, id string) (*Application, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+applicationColumns+` FROM applications WHERE "id"=$1
	`, id)
	app, err := scanApplication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return app, err
}

func (r *ApplicationRepository) ListForUser(ctx context.Context, userID string) ([]Application, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+applicationColumns+`
		FROM applications
		WHERE "user_id"=$1
		ORDER BY "created_at" DESC, "id"
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectApplications(rows)
}

// List returns applications for review, newest first, optionally filtered
// by status.
func (r *ApplicationRepository) List(ctx context.Context, status string) ([]Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE "status"=$1`
		args = append(args, status)
	}
	query += ` ORDER BY "created_at" DESC, "id"`

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectApplications(rows)
}

func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id, status, notes string) (*Application, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE applications
		SET "status"=$1, "notes"=$2, "updated_at"=NOW()
		WHERE "id"=$3
		RETURNING `+applicationColumns, status, notes, id)
	app, err := scanApplication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return app, err
}

func (r *ApplicationRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM applications WHERE "id"=$1`, id)
	return err
}

// StoreReport records one analyzer run and flips the application status in
// the same transaction, so a report never exists for a still-pending row.
func (r *ApplicationRepository) StoreReport(ctx context.Context, report *AnalysisReport, status string) (*AnalysisReport, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	report.ID = uuid.NewString()
	row := tx.QueryRow(ctx, `
		INSERT INTO analysis_reports
		("id","application_id","model","total_score","eligible","confidence","summary","criteria","recommendations","processing_seconds")
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING "created_at"
	`, report.ID, report.ApplicationID, report.Model, report.TotalScore, report.Eligible,
		report.Confidence, report.Summary, report.Criteria, report.Recommendations, report.ProcessingSeconds)
	if err := row.Scan(&report.CreatedAt); err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE applications SET "status"=$1, "updated_at"=NOW() WHERE "id"=$2
	`, status, report.ApplicationID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return report, nil
}

func (r *ApplicationRepository) LatestReport(ctx context.Context, applicationID string) (*AnalysisReport, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT "id","application_id","model","total_score","eligible","confidence","summary","criteria","recommendations","processing_seconds","created_at"
		FROM analysis_reports
		WHERE "application_id"=$1
		ORDER BY "created_at" DESC
		LIMIT 1
	`, applicationID)

	var rep AnalysisReport
	if err := row.Scan(
		&rep.ID,
		&rep.ApplicationID,
		&rep.Model,
		&rep.TotalScore,
		&rep.Eligible,
		&rep.Confidence,
		&rep.Summary,
		&rep.Criteria,
		&rep.Recommendations,
		&rep.ProcessingSeconds,
		&rep.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rep, nil
}

func collectApplications(rows pgx.Rows) ([]Application, error) {
	var apps []Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

func scanApplication(row pgx.Row) (*Application, error) {
	var a Application
	if err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.BusinessName,
		&a.ContactEmail,
		&a.PDFFilename,
		&a.PDFPath,
		&a.Status,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
