package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// LogFields flattens err into zerolog fields: the message, the typed code when one
// is present, every wrapped layer, and Postgres diagnostics from pgx or lib/pq.
func LogFields(err error) map[string]any {
	if err == nil {
		return nil
	}
	fields := map[string]any{"error": err.Error()}
	if typed := As(err); typed != nil {
		fields["error_code"] = string(typed.Code())
	}

	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T", e))
	}
	fields["error_chain"] = chain

	if pg, ok := postgresDiagnostics(err); ok {
		fields["pg"] = pg
	}
	return fields
}

func postgresDiagnostics(err error) (map[string]string, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return compact(map[string]string{
			"code":       pgxErr.Code,
			"constraint": pgxErr.ConstraintName,
			"table":      pgxErr.TableName,
			"column":     pgxErr.ColumnName,
			"detail":     pgxErr.Detail,
		}), true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return compact(map[string]string{
			"code":       string(pqErr.Code),
			"constraint": pqErr.Constraint,
			"table":      pqErr.Table,
			"column":     pqErr.Column,
			"detail":     pqErr.Detail,
		}), true
	}
	return nil, false
}

func compact(m map[string]string) map[string]string {
	for k, v := range m {
		if v == "" {
			delete(m, k)
		}
	}
	return m
}
