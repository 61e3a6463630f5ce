package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestConstraintViolations(t *testing.T) {
	unique := fmt.Errorf("insert answer: %w", &pgconn.PgError{Code: "23505"})
	fk := &pgconn.PgError{Code: "23503"}

	if !isUniqueViolation(unique) || isUniqueViolation(fk) {
		t.Fatalf("unique violation detection is wrong")
	}
	if !isForeignKeyViolation(fk) || isForeignKeyViolation(unique) {
		t.Fatalf("foreign key violation detection is wrong")
	}
	if isUniqueViolation(errors.New("boom")) || isUniqueViolation(nil) {
		t.Fatalf("plain errors are not violations")
	}
}
