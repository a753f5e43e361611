package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/inventory/internal/apperr"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type GormRepo struct {
	DB *gorm.DB
}

// fieldTaken counts rows of model whose column for field equals value,
// skipping excludeID. columns whitelists the fields callers may probe.
func (r *GormRepo) fieldTaken(ctx context.Context, model any, columns map[string]string, field, value string, excludeID uint) (bool, error) {
	col, ok := columns[field]
	if !ok {
		return false, fmt.Errorf("repo: %q is not a unique field", field)
	}

	q := r.DB.WithContext(ctx).Model(model).
		Where(clause.Eq{Column: clause.Column{Name: col}, Value: value})
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// updateRow writes every column of model to its existing row. Unlike Save it
// never inserts, so a row deleted since it was read stays deleted.
func (r *GormRepo) updateRow(ctx context.Context, model any) error {
	res := r.DB.WithContext(ctx).Model(model).Select("*").Updates(model)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// deleteByID reports a row that other rows still reference as InUse.
func (r *GormRepo) deleteByID(ctx context.Context, model any, id uint) error {
	res := r.DB.WithContext(ctx).Delete(model, id)
	if res.Error != nil {
		err := classify(res.Error)
		var ce *apperr.ConstraintError
		if errors.As(err, &ce) && ce.Kind == apperr.ForeignKeyViolation {
			ce.Kind = apperr.InUse
		}
		return err
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// classify turns driver-level constraint failures into *apperr.ConstraintError.
// Other errors pass through unchanged.
func classify(err error) error {
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &apperr.ConstraintError{Kind: apperr.UniqueViolation, Column: columnFromIndex(pgErr.ConstraintName), Err: err}
		case pgForeignKeyViolation:
			return &apperr.ConstraintError{Kind: apperr.ForeignKeyViolation, Err: err}
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgUniqueViolation:
			return &apperr.ConstraintError{Kind: apperr.UniqueViolation, Column: columnFromIndex(pqErr.Constraint), Err: err}
		case pgForeignKeyViolation:
			return &apperr.ConstraintError{Kind: apperr.ForeignKeyViolation, Err: err}
		}
	}

	// sqlite reports constraints only in the message text
	msg := err.Error()
	if i := strings.Index(msg, "UNIQUE constraint failed: "); i >= 0 {
		return &apperr.ConstraintError{Kind: apperr.UniqueViolation, Column: columnFromSQLite(msg[i+len("UNIQUE constraint failed: "):]), Err: err}
	}
	if strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return &apperr.ConstraintError{Kind: apperr.ForeignKeyViolation, Err: err}
	}
	return err
}

// columnFromIndex reads the column out of a uq_<table>_<column> index name.
func columnFromIndex(name string) string {
	for _, table := range []string{"users", "products", "roles", "categories"} {
		prefix := "uq_" + table + "_"
		if strings.HasPrefix(name, prefix) {
			return strings.TrimPrefix(name, prefix)
		}
	}
	return ""
}

// columnFromSQLite parses "users.email (2067)" style suffixes.
func columnFromSQLite(s string) string {
	if i := strings.IndexAny(s, " ,"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return ""
}
