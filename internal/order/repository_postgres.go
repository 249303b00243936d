package order

import (
	"database/sql"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	insertOrderQuery = `
		INSERT INTO orders (user_id, status, total, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING order_id
	`
	insertOrderItemQuery = `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING item_id
	`
	// scoped to the snapshotted line ids: a line added to the cart after
	// the snapshot was read is left alone
	clearCartItemsQuery = `DELETE FROM cart_items WHERE item_id = ANY($1::int[])`

	getOrderQuery = `
		SELECT order_id, user_id, status, total, created_at
		FROM orders
		WHERE order_id = $1
	`
	listByUserQuery = `
		SELECT order_id, user_id, status, total, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, order_id DESC
	`
	listAllQuery = `
		SELECT order_id, user_id, status, total, created_at
		FROM orders
		ORDER BY order_id
	`
	listItemsQuery = `
		SELECT item_id, order_id, product_id, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY item_id
	`
	updateStatusQuery = `UPDATE orders SET status = $1 WHERE order_id = $2`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Finalize runs the whole checkout write set in one transaction: the order
// row, every order item, and the delete of the snapshotted cart lines. Any
// failure rolls all of it back.
func (r *PostgresRepository) Finalize(ord Order, cartItemIDs []int) (Order, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return Order{}, err
	}
	defer tx.Rollback()

	if err := tx.QueryRow(insertOrderQuery, ord.UserID, ord.Status, ord.Total, ord.CreatedAt).Scan(&ord.ID); err != nil {
		return Order{}, err
	}

	for i := range ord.Items {
		ord.Items[i].OrderID = ord.ID
		if err := tx.QueryRow(insertOrderItemQuery,
			ord.ID, ord.Items[i].ProductID, ord.Items[i].Quantity, ord.Items[i].UnitPrice,
		).Scan(&ord.Items[i].ID); err != nil {
			return Order{}, err
		}
	}

	if _, err := tx.Exec(clearCartItemsQuery, pq.Array(cartItemIDs)); err != nil {
		return Order{}, err
	}

	if err := tx.Commit(); err != nil {
		return Order{}, err
	}
	return ord, nil
}

func (r *PostgresRepository) GetByID(id int) (Order, error) {
	var ord Order
	err := r.db.QueryRow(getOrderQuery, id).Scan(&ord.ID, &ord.UserID, &ord.Status, &ord.Total, &ord.CreatedAt)
	if err == sql.ErrNoRows {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}

	ord.Items, err = r.listItems(ord.ID)
	if err != nil {
		return Order{}, err
	}
	return ord, nil
}

func (r *PostgresRepository) ListByUser(userID int) ([]Order, error) {
	return r.queryOrders(listByUserQuery, userID)
}

func (r *PostgresRepository) ListAll() ([]Order, error) {
	return r.queryOrders(listAllQuery)
}

func (r *PostgresRepository) UpdateStatus(id int, status Status) (Order, error) {
	res, err := r.db.Exec(updateStatusQuery, status, id)
	if err != nil {
		return Order{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Order{}, ErrNotFound
	}
	return r.GetByID(id)
}

func (r *PostgresRepository) queryOrders(query string, args ...any) ([]Order, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		var ord Order
		if err := rows.Scan(&ord.ID, &ord.UserID, &ord.Status, &ord.Total, &ord.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, ord)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		orders[i].Items, err = r.listItems(orders[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *PostgresRepository) listItems(orderID int) ([]Item, error) {
	rows, err := r.db.Query(listItemsQuery, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
