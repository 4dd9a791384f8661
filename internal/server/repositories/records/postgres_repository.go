package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"equiptrack/internal/common"
	"equiptrack/internal/dbx"
	"equiptrack/internal/server/models"
)

// Postgres error codes translated into typed errors.
const (
	pgUniqueViolation  = "23505"
	pgNotNullViolation = "23502"
	pgCheckViolation   = "23514"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordColumns = `id, equipo_id, serial_number, placa_ml, responsible, role,
	latitude, longitude, auto_address, manual_location,
	state, windows_update_applied, observations, detected_problems,
	images, reviewed_at, updated_at, reviewer`

// translateError maps driver-level constraint failures onto the typed
// sentinels in internal/common.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", common.ErrorDuplicateKey, pgErr.ConstraintName)
		case pgCheckViolation:
			return fmt.Errorf("%w: %s", common.ErrorConstraintViolation, pgErr.ConstraintName)
		case pgNotNullViolation:
			return fmt.Errorf("%w: %s", common.ErrorMissingField, pgErr.ColumnName)
		}
	}
	return fmt.Errorf("db error: %w", err)
}

func scanRecord(row interface{ Scan(dest ...any) error }) (*models.EquipmentRecord, error) {
	var (
		r          models.EquipmentRecord
		placaML    sql.NullString
		latitude   sql.NullFloat64
		longitude  sql.NullFloat64
		autoAddr   sql.NullString
		manualLoc  sql.NullString
		observ     sql.NullString
		problems   sql.NullString
		imagesJSON []byte
		updatedAt  sql.NullTime
		reviewer   sql.NullString
	)

	err := row.Scan(&r.ID, &r.EquipoID, &r.SerialNumber, &placaML, &r.Responsible, &r.Role,
		&latitude, &longitude, &autoAddr, &manualLoc,
		&r.State, &r.WindowsUpdateApplied, &observ, &problems,
		&imagesJSON, &r.ReviewedAt, &updatedAt, &reviewer)
	if err != nil {
		return nil, err
	}

	r.PlacaML = placaML.String
	r.AutoAddress = autoAddr.String
	r.ManualLocation = manualLoc.String
	r.Observations = observ.String
	r.DetectedProblems = problems.String
	r.Reviewer = reviewer.String
	if latitude.Valid {
		r.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		r.Longitude = &longitude.Float64
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		r.UpdatedAt = &t
	}
	if len(imagesJSON) > 0 {
		if err := json.Unmarshal(imagesJSON, &r.Images); err != nil {
			return nil, fmt.Errorf("decoding images column: %w", err)
		}
	}

	return &r, nil
}

func marshalImages(images []models.ImageDescriptor) ([]byte, error) {
	if images == nil {
		images = []models.ImageDescriptor{}
	}
	return json.Marshal(images)
}

func (r *PostgresRepository) List(ctx context.Context, filter models.RecordFilter) ([]*models.EquipmentRecord, error) {
	var (
		conds []string
		args  []any
	)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.State != "" {
		add("state = $%d", filter.State)
	}
	if filter.Responsible != "" {
		add("responsible ILIKE '%%' || $%d || '%%'", escapeLike(filter.Responsible))
	}
	if filter.EquipoID != "" {
		add("equipo_id ILIKE '%%' || $%d || '%%'", escapeLike(filter.EquipoID))
	}
	if filter.SerialNumber != "" {
		add("serial_number ILIKE '%%' || $%d || '%%'", escapeLike(filter.SerialNumber))
	}
	if filter.Reviewer != "" {
		add("reviewer ILIKE '%%' || $%d || '%%'", escapeLike(filter.Reviewer))
	}

	query := `SELECT ` + recordColumns + ` FROM equipment_records`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY reviewed_at DESC"

	return r.queryRecords(ctx, query, args...)
}

func (r *PostgresRepository) ListWithImages(ctx context.Context) ([]*models.EquipmentRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM equipment_records
		 WHERE images IS NOT NULL AND jsonb_array_length(images) > 0
		 ORDER BY reviewed_at DESC`

	return r.queryRecords(ctx, query)
}

func (r *PostgresRepository) queryRecords(ctx context.Context, query string, args ...any) ([]*models.EquipmentRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	result := []*models.EquipmentRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.EquipmentRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM equipment_records WHERE id = $1`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, translateError(err)
	}

	return rec, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, rec *models.EquipmentRecord) (*models.EquipmentRecord, error) {
	imagesJSON, err := marshalImages(rec.Images)
	if err != nil {
		return nil, fmt.Errorf("encoding images: %w", err)
	}

	query :=
		`INSERT INTO equipment_records (equipo_id, serial_number, placa_ml, responsible, role,
			latitude, longitude, auto_address, manual_location,
			state, windows_update_applied, observations, detected_problems,
			images, reviewed_at, reviewer)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING id, reviewed_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		rec.EquipoID, rec.SerialNumber, nullString(rec.PlacaML), rec.Responsible, rec.Role,
		rec.Latitude, rec.Longitude, nullString(rec.AutoAddress), nullString(rec.ManualLocation),
		rec.State, rec.WindowsUpdateApplied, nullString(rec.Observations), nullString(rec.DetectedProblems),
		imagesJSON, rec.ReviewedAt, nullString(rec.Reviewer)).Scan(&rec.ID, &rec.ReviewedAt)
	if err != nil {
		return nil, translateError(err)
	}

	return rec, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id int64, rec *models.EquipmentRecord) error {
	imagesJSON, err := marshalImages(rec.Images)
	if err != nil {
		return fmt.Errorf("encoding images: %w", err)
	}

	query :=
		`UPDATE equipment_records
		 SET equipo_id = $1, serial_number = $2, placa_ml = $3, responsible = $4, role = $5,
			latitude = $6, longitude = $7, auto_address = $8, manual_location = $9,
			state = $10, windows_update_applied = $11, observations = $12, detected_problems = $13,
			images = $14, reviewer = $15, updated_at = now()
		 WHERE id = $16
		 RETURNING updated_at
		 `

	var updatedAt sql.NullTime
	err = r.db.QueryRowContext(ctx, query,
		rec.EquipoID, rec.SerialNumber, nullString(rec.PlacaML), rec.Responsible, rec.Role,
		rec.Latitude, rec.Longitude, nullString(rec.AutoAddress), nullString(rec.ManualLocation),
		rec.State, rec.WindowsUpdateApplied, nullString(rec.Observations), nullString(rec.DetectedProblems),
		imagesJSON, nullString(rec.Reviewer), id).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return translateError(err)
	}

	if updatedAt.Valid {
		rec.UpdatedAt = &updatedAt.Time
	}
	rec.ID = id

	return nil
}

func (r *PostgresRepository) UpdateImages(ctx context.Context, id int64, images []models.ImageDescriptor) error {
	imagesJSON, err := marshalImages(images)
	if err != nil {
		return fmt.Errorf("encoding images: %w", err)
	}

	query := `UPDATE equipment_records SET images = $1, updated_at = now() WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, imagesJSON, id)
	if err != nil {
		return translateError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}

// Delete removes the row and returns the image set it carried, so the
// caller can clean up backing files. The read and the delete run in one
// transaction to keep the returned set consistent with what was removed.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) ([]models.ImageDescriptor, error) {
	var images []models.ImageDescriptor

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var imagesJSON []byte
		err := tx.QueryRowContext(ctx,
			`SELECT images FROM equipment_records WHERE id = $1 FOR UPDATE`, id).Scan(&imagesJSON)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return common.ErrorNotFound
			}
			return translateError(err)
		}

		if len(imagesJSON) > 0 {
			if err := json.Unmarshal(imagesJSON, &images); err != nil {
				return fmt.Errorf("decoding images column: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM equipment_records WHERE id = $1`, id); err != nil {
			return translateError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return images, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE wildcards in user-supplied filter text so it
// matches as a literal substring.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
