package cart

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Postgres error class for foreign key violations.
const foreignKeyViolationCode = "23503"

type PostgresRepository struct {
	db *sql.DB
}

const (
	getCartByUserQuery = `
		SELECT cart_id, user_id, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`
	insertCartQuery = `
		INSERT INTO carts (user_id, created_at, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`
	listItemsQuery = `
		SELECT item_id, cart_id, product_id, quantity, unit_price
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY item_id
	`
	getItemQuery = `
		SELECT item_id, cart_id, product_id, quantity, unit_price
		FROM cart_items
		WHERE item_id = $1
	`
	findItemQuery = `
		SELECT item_id, cart_id, product_id, quantity, unit_price
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
	`
	// quantity is added in place on conflict, which makes concurrent adds
	// for the same (cart, product) pair serialize at the row instead of
	// racing through a read-modify-write. The stored unit_price is kept on
	// conflict: the price is frozen at first add.
	upsertItemQuery = `
		INSERT INTO cart_items (cart_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING item_id, quantity
	`
	setItemQuantityQuery = `UPDATE cart_items SET quantity = $1 WHERE item_id = $2`
	deleteItemQuery      = `DELETE FROM cart_items WHERE item_id = $1`
	removeItemsQuery     = `DELETE FROM cart_items WHERE item_id = ANY($1::int[])`
	clearItemsQuery      = `DELETE FROM cart_items WHERE cart_id = $1`
	touchCartQuery       = `UPDATE carts SET updated_at = $1 WHERE cart_id = $2`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetOrCreate(userID int, now string) (Cart, error) {
	if _, err := r.db.Exec(insertCartQuery, userID, now, now); err != nil {
		// carts.user_id references users; an unknown user is a missing
		// resource, not a server fault
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode {
			return Cart{}, ErrUserNotFound
		}
		return Cart{}, err
	}
	return r.GetByUser(userID)
}

func (r *PostgresRepository) GetByUser(userID int) (Cart, error) {
	var c Cart
	err := r.db.QueryRow(getCartByUserQuery, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return Cart{}, ErrCartNotFound
	}
	if err != nil {
		return Cart{}, err
	}
	return c, nil
}

func (r *PostgresRepository) ListItems(cartID int) ([]Item, error) {
	rows, err := r.db.Query(listItemsQuery, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetItem(itemID int) (Item, error) {
	return r.scanItem(r.db.QueryRow(getItemQuery, itemID))
}

func (r *PostgresRepository) FindItem(cartID, productID int) (Item, error) {
	return r.scanItem(r.db.QueryRow(findItemQuery, cartID, productID))
}

// AddItem merges delta into the line for (cartID, productID), creating it
// with unitPrice when absent and removing it when the resulting quantity is
// not positive. The upsert and the cleanup delete run in one transaction.
func (r *PostgresRepository) AddItem(cartID, productID, delta int, unitPrice decimal.Decimal) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var itemID, quantity int
	if err := tx.QueryRow(upsertItemQuery, cartID, productID, delta, unitPrice).Scan(&itemID, &quantity); err != nil {
		return err
	}

	if quantity <= 0 {
		if _, err := tx.Exec(deleteItemQuery, itemID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PostgresRepository) SetItemQuantity(itemID, quantity int) error {
	res, err := r.db.Exec(setItemQuantityQuery, quantity, itemID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteItem(itemID int) error {
	res, err := r.db.Exec(deleteItemQuery, itemID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *PostgresRepository) RemoveItems(itemIDs []int) error {
	_, err := r.db.Exec(removeItemsQuery, pq.Array(itemIDs))
	return err
}

func (r *PostgresRepository) ClearItems(cartID int) error {
	_, err := r.db.Exec(clearItemsQuery, cartID)
	return err
}

func (r *PostgresRepository) Touch(cartID int, now string) error {
	_, err := r.db.Exec(touchCartQuery, now, cartID)
	return err
}

func (r *PostgresRepository) scanItem(row *sql.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.UnitPrice)
	if err == sql.ErrNoRows {
		return Item{}, ErrItemNotFound
	}
	if err != nil {
		return Item{}, err
	}
	return it, nil
}
