package donor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"donorhub/internal/donor/models"
	"donorhub/internal/platform/postgres"
	id "donorhub/pkg/domain"
	"donorhub/pkg/platform/sentinel"
)

// PostgresStore persists donors in PostgreSQL. The donors_email_key unique
// index on lower(email) is the source of truth for uniqueness.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const donorColumns = `id, first_name, last_name, email, phone, birth_date, blood_type, weight_kg,
	last_donation_date, is_eligible, medical_notes, created_by, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, d *models.Donor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO donors (`+donorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, d.ID.String(), d.FirstName, d.LastName, d.Email, d.Phone, d.BirthDate, string(d.BloodType), d.WeightKg,
		nullDate(d.LastDonationDate), d.IsEligible, d.MedicalNotes, d.CreatedBy.String(), d.CreatedAt, d.UpdatedAt)
	return postgres.TranslateWriteError("create donor", err)
}

func (s *PostgresStore) FindByID(ctx context.Context, donorID id.DonorID) (*models.Donor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+donorColumns+` FROM donors WHERE id = $1`, donorID.String())
	return scanDonor(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Donor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+donorColumns+` FROM donors WHERE lower(email) = lower($1)`, email)
	return scanDonor(row)
}

// List returns the page selected by q and the number of records matching its
// filters before pagination.
func (s *PostgresStore) List(ctx context.Context, q models.ListQuery) ([]*models.Donor, int, error) {
	where, args := listFilter(q)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM donors`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count donors: %w", err)
	}

	query := `SELECT ` + donorColumns + ` FROM donors` + where + ` ORDER BY created_at, id`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list donors: %w", err)
	}
	defer rows.Close()

	donors := make([]*models.Donor, 0)
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, 0, err
		}
		donors = append(donors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list donors: %w", err)
	}
	return donors, total, nil
}

func listFilter(q models.ListQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.Owner != nil {
		args = append(args, q.Owner.String())
		conds = append(conds, "created_by = $"+strconv.Itoa(len(args)))
	}
	if q.BloodType != nil {
		args = append(args, string(*q.BloodType))
		conds = append(conds, "blood_type = $"+strconv.Itoa(len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *PostgresStore) Update(ctx context.Context, d *models.Donor) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE donors
		SET first_name = $2, last_name = $3, email = $4, phone = $5, birth_date = $6, blood_type = $7,
		    weight_kg = $8, last_donation_date = $9, is_eligible = $10, medical_notes = $11, updated_at = $12
		WHERE id = $1
	`, d.ID.String(), d.FirstName, d.LastName, d.Email, d.Phone, d.BirthDate, string(d.BloodType),
		d.WeightKg, nullDate(d.LastDonationDate), d.IsEligible, d.MedicalNotes, d.UpdatedAt)
	if err != nil {
		return postgres.TranslateWriteError("update donor", err)
	}
	return requireAffected(res, "update donor")
}

func (s *PostgresStore) Delete(ctx context.Context, donorID id.DonorID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM donors WHERE id = $1`, donorID.String())
	if err != nil {
		return fmt.Errorf("delete donor: %w", err)
	}
	return requireAffected(res, "delete donor")
}

func (s *PostgresStore) CountByOwner(ctx context.Context, owner id.UserID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM donors WHERE created_by = $1`, owner.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count donors by owner: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDonor(row scanner) (*models.Donor, error) {
	var (
		d         models.Donor
		donorID   string
		createdBy string
		bloodType string
		last      sql.NullTime
	)
	err := row.Scan(&donorID, &d.FirstName, &d.LastName, &d.Email, &d.Phone, &d.BirthDate, &bloodType,
		&d.WeightKg, &last, &d.IsEligible, &d.MedicalNotes, &createdBy, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan donor: %w", err)
	}
	if d.ID, err = id.ParseDonorID(donorID); err != nil {
		return nil, fmt.Errorf("scan donor id: %w", err)
	}
	if d.CreatedBy, err = id.ParseUserID(createdBy); err != nil {
		return nil, fmt.Errorf("scan donor owner: %w", err)
	}
	d.BloodType = id.BloodType(bloodType)
	// DATE columns come back in the session zone.
	d.BirthDate = id.TruncateToDate(d.BirthDate)
	if last.Valid {
		t := id.TruncateToDate(last.Time)
		d.LastDonationDate = &t
	}
	return &d, nil
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
