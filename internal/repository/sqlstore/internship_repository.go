package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"internportal/internal/common"
	"internportal/internal/domain/internship"
)

const internshipColumns = `id, employer_id, title, description, requirements, location, duration, status, created_at, updated_at`

type InternshipRepository struct {
	db *sql.DB
}

func NewInternshipRepository(db *sql.DB) *InternshipRepository {
	return &InternshipRepository{db: db}
}

func (r *InternshipRepository) Create(ctx context.Context, in internship.Internship) (*internship.Internship, error) {
	in.ID = common.NewUUID()
	now := time.Now().UTC()
	in.CreatedAt = now
	in.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `INSERT INTO internships (`+internshipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		in.ID, in.EmployerID, in.Title, in.Description, in.Requirements, in.Location, in.Duration, in.Status, in.CreatedAt, in.UpdatedAt)
	if err != nil {
		return nil, storeError("failed to create internship", err)
	}
	return &in, nil
}

func (r *InternshipRepository) GetByID(ctx context.Context, id common.UUID) (*internship.Internship, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+internshipColumns+` FROM internships WHERE id = $1`, id)
	in, err := scanInternship(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "internship not found", err)
		}
		return nil, storeError("failed to load internship", err)
	}
	return in, nil
}

func (r *InternshipRepository) List(ctx context.Context, filter internship.Filter) ([]internship.Internship, error) {
	var w where
	if filter.EmployerID != "" {
		w.add("employer_id = %s", filter.EmployerID)
	}
	statuses := make([]string, len(filter.Statuses))
	for i, status := range filter.Statuses {
		statuses[i] = string(status)
	}
	w.in("status", statuses)
	query := `SELECT ` + internshipColumns + ` FROM internships` + w.String() + ` ORDER BY created_at DESC, id` + w.page(filter.Limit, filter.Offset)
	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, storeError("failed to list internships", err)
	}
	defer rows.Close()
	items := []internship.Internship{}
	for rows.Next() {
		in, err := scanInternship(rows)
		if err != nil {
			return nil, storeError("failed to scan internship", err)
		}
		items = append(items, *in)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("failed to list internships", err)
	}
	return items, nil
}

// Update only succeeds while the row still holds change.From, so two racing
// writers cannot both apply and text edits cannot land on a closed posting.
func (r *InternshipRepository) Update(ctx context.Context, id common.UUID, change internship.Change, at time.Time) (*internship.Internship, error) {
	set := `status = $1, updated_at = $2`
	args := []any{change.Target(), at.UTC()}
	if d := change.Details; d != nil {
		set += `, title = $3, description = $4, requirements = $5, location = $6, duration = $7`
		args = append(args, d.Title, d.Description, d.Requirements, d.Location, d.Duration)
	}
	// Placeholders stay in order of appearance; sqlite numbers them that way.
	args = append(args, id, change.From)
	query := fmt.Sprintf(`UPDATE internships SET %s WHERE id = $%d AND status = $%d`, set, len(args)-1, len(args))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("failed to update internship", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, storeError("failed to update internship", err)
	}
	if rows == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, common.NewError(common.CodeInvalidTransition,
			"internship status changed from "+string(change.From)+" to "+string(current.Status), nil)
	}
	return r.GetByID(ctx, id)
}

func scanInternship(row scanner) (*internship.Internship, error) {
	var in internship.Internship
	if err := row.Scan(&in.ID, &in.EmployerID, &in.Title, &in.Description, &in.Requirements, &in.Location, &in.Duration,
		&in.Status, &in.CreatedAt, &in.UpdatedAt); err != nil {
		return nil, err
	}
	in.CreatedAt = in.CreatedAt.UTC()
	in.UpdatedAt = in.UpdatedAt.UTC()
	return &in, nil
}
