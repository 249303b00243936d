package order

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

func TestFinalize_CommitsOrderItemsAndCartClearTogether(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	ord := Order{
		UserID:    7,
		Status:    StatusPending,
		Total:     decimal.RequireFromString("90.00"),
		CreatedAt: "2026-01-01T00:00:00Z",
		Items: []Item{
			{ProductID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("35.00")},
			{ProductID: 2, Quantity: 1, UnitPrice: decimal.RequireFromString("20.00")},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(7, StatusPending, ord.Total, ord.CreatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(12))
	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs(12, 1, 2, ord.Items[0].UnitPrice).
		WillReturnRows(sqlmock.NewRows([]string{"item_id"}).AddRow(31))
	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs(12, 2, 1, ord.Items[1].UnitPrice).
		WillReturnRows(sqlmock.NewRows([]string{"item_id"}).AddRow(32))
	mock.ExpectExec("DELETE FROM cart_items WHERE item_id").
		WithArgs(pq.Array([]int{21, 22})).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	created, err := repo.Finalize(ord, []int{21, 22})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if created.ID != 12 || len(created.Items) != 2 || created.Items[0].OrderID != 12 {
		t.Fatalf("unexpected order %+v", created)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestFinalize_RollsBackWhenAnItemInsertFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	ord := Order{
		UserID:    7,
		Status:    StatusPending,
		Total:     decimal.RequireFromString("35.00"),
		CreatedAt: "2026-01-01T00:00:00Z",
		Items:     []Item{{ProductID: 1, Quantity: 1, UnitPrice: decimal.RequireFromString("35.00")}},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(7, StatusPending, ord.Total, ord.CreatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(12))
	mock.ExpectQuery("INSERT INTO order_items").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if _, err := repo.Finalize(ord, []int{21}); err == nil {
		t.Fatal("expected Finalize to fail")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
