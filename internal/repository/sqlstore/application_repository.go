package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"internportal/internal/common"
	"internportal/internal/domain/application"
)

const applicationSelect = `SELECT a.id, a.student_id, a.internship_id, a.status, a.cover_letter, a.created_at, a.updated_at, i.employer_id
	FROM applications a
	JOIN internships i ON i.id = a.internship_id`

type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create relies on applications_student_internship_key: of two concurrent
// submits exactly one insert wins and the other maps to a duplicate.
func (r *ApplicationRepository) Create(ctx context.Context, app application.Application) (*application.Application, error) {
	app.ID = common.NewUUID()
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `INSERT INTO applications (id, student_id, internship_id, status, cover_letter, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		app.ID, app.StudentID, app.InternshipID, app.Status, app.CoverLetter, app.CreatedAt, app.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.NewError(common.CodeDuplicateApplication, "already applied to this internship", err)
		}
		return nil, storeError("failed to create application", err)
	}
	return &app, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id common.UUID) (*application.Application, error) {
	row := r.db.QueryRowContext(ctx, applicationSelect+` WHERE a.id = $1`, id)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "application not found", err)
		}
		return nil, storeError("failed to load application", err)
	}
	return app, nil
}

func (r *ApplicationRepository) List(ctx context.Context, filter application.Filter) ([]application.Application, error) {
	var w where
	if filter.StudentID != "" {
		w.add("a.student_id = %s", filter.StudentID)
	}
	if filter.EmployerID != "" {
		w.add("i.employer_id = %s", filter.EmployerID)
	}
	if filter.InternshipID != "" {
		w.add("a.internship_id = %s", filter.InternshipID)
	}
	if filter.Status != "" {
		w.add("a.status = %s", filter.Status)
	}
	query := applicationSelect + w.String() + ` ORDER BY a.created_at DESC, a.id` + w.page(filter.Limit, filter.Offset)
	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, storeError("failed to list applications", err)
	}
	defer rows.Close()
	items := []application.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, storeError("failed to scan application", err)
		}
		items = append(items, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("failed to list applications", err)
	}
	return items, nil
}

func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id common.UUID, from, to application.Status, at time.Time) (*application.Application, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, at.UTC(), id, from)
	if err != nil {
		return nil, storeError("failed to update application", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, storeError("failed to update application", err)
	}
	if rows == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, common.NewError(common.CodeInvalidTransition, "application status changed concurrently", nil)
	}
	return r.GetByID(ctx, id)
}

func scanApplication(row scanner) (*application.Application, error) {
	var app application.Application
	if err := row.Scan(&app.ID, &app.StudentID, &app.InternshipID, &app.Status, &app.CoverLetter, &app.CreatedAt, &app.UpdatedAt, &app.EmployerID); err != nil {
		return nil, err
	}
	app.CreatedAt = app.CreatedAt.UTC()
	app.UpdatedAt = app.UpdatedAt.UTC()
	return &app, nil
}
