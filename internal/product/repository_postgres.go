package product

import (
	"database/sql"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	productColumns = `product_id, name, description, price, category, available, image`

	listProductsQuery = `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY product_id
	`
	listAvailableQuery = `
		SELECT ` + productColumns + `
		FROM products
		WHERE available
		ORDER BY product_id
	`
	listByIDsQuery = `
		SELECT ` + productColumns + `
		FROM products
		WHERE product_id = ANY($1::int[])
		ORDER BY array_position($1::int[], product_id)
	`
	getProductQuery = `
		SELECT ` + productColumns + `
		FROM products
		WHERE product_id = $1
	`
	insertProductQuery = `
		INSERT INTO products (name, description, price, category, available, image)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING product_id
	`
	updateProductQuery = `
		UPDATE products
		SET name = $1, description = $2, price = $3, category = $4, available = $5, image = $6
		WHERE product_id = $7
	`
	deleteProductQuery = `DELETE FROM products WHERE product_id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List() []Product {
	return r.queryMany(listProductsQuery)
}

func (r *PostgresRepository) ListAvailable() []Product {
	return r.queryMany(listAvailableQuery)
}

func (r *PostgresRepository) ListByIDs(ids []int) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}

	rows, err := r.db.Query(listByIDsQuery, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetByID(id int) (Product, error) {
	var p Product
	err := r.db.QueryRow(getProductQuery, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Available, &p.Image)
	if err == sql.ErrNoRows {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) Create(p Product) (Product, error) {
	err := r.db.QueryRow(insertProductQuery,
		p.Name, p.Description, p.Price, p.Category, p.Available, p.Image,
	).Scan(&p.ID)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) Update(id int, p Product) (Product, error) {
	res, err := r.db.Exec(updateProductQuery,
		p.Name, p.Description, p.Price, p.Category, p.Available, p.Image, id)
	if err != nil {
		return Product{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Product{}, ErrNotFound
	}
	p.ID = id
	return p, nil
}

func (r *PostgresRepository) Delete(id int) error {
	res, err := r.db.Exec(deleteProductQuery, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) queryMany(query string) []Product {
	rows, err := r.db.Query(query)
	if err != nil {
		return []Product{}
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Available, &p.Image)
	return p, err
}
