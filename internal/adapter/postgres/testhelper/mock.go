package testhelper

import (
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v2"
)

// NewMockPool returns a pgxmock pool closed via t.Cleanup.
func NewMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("testhelper: create pgxmock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

// ExpectationsWereMet fails the test when an expected statement was not executed.
func ExpectationsWereMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
