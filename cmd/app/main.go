package main

import (
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	jwtware "github.com/gofiber/jwt/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/moroburger/menu-backend/internal/cart"
	"github.com/moroburger/menu-backend/internal/config"
	"github.com/moroburger/menu-backend/internal/order"
	"github.com/moroburger/menu-backend/internal/product"
	"github.com/moroburger/menu-backend/internal/user"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		logrus.Warn("JWT_SECRET is empty; tokens will be signed with an empty key")
	}

	app := fiber.New()
	setupCORS(app)

	db := mustOpenDB(cfg.DatabaseURL)
	defer db.Close()

	ensureSchema(db)
	seedData(db)

	userRepo := user.NewPostgresRepository(db)
	userService := user.NewService(userRepo)
	userHandler := user.NewHandler(userService, cfg.JWTSecret)

	productRepo := product.NewPostgresRepository(db)
	productService := product.NewService(productRepo)
	productHandler := product.NewHandler(productService)

	cartRepo := cart.NewPostgresRepository(db)
	cartService := cart.NewService(cartRepo, productService)
	cartHandler := cart.NewHandler(cartService)

	orderRepo := order.NewPostgresRepository(db)
	orderService := order.NewService(orderRepo, cartRepo, productService)
	orderHandler := order.NewHandler(orderService)

	userHandler.RegisterPublicRoutes(app)
	productHandler.RegisterPublicRoutes(app)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// everything below requires a valid token
	app.Use(jwtware.New(jwtware.Config{SigningKey: []byte(cfg.JWTSecret)}))

	userHandler.RegisterProtectedRoutes(app)
	productHandler.RegisterProtectedRoutes(app)
	cartHandler.RegisterProtectedRoutes(app)
	orderHandler.RegisterProtectedRoutes(app)

	logrus.WithField("addr", cfg.Addr).Info("menu backend listening")
	if err := app.Listen(cfg.Addr); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

func mustOpenDB(url string) *sql.DB {
	db, err := sql.Open("pgx", url)
	if err != nil {
		logrus.WithError(err).Fatal("could not open database")
	}
	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("could not reach database")
	}
	return db
}

func ensureSchema(db *sql.DB) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'customer',
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			product_id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price NUMERIC NOT NULL DEFAULT 0,
			category TEXT NOT NULL,
			available BOOLEAN NOT NULL DEFAULT TRUE,
			image TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS carts (
			cart_id SERIAL PRIMARY KEY,
			user_id INT NOT NULL UNIQUE REFERENCES users(user_id),
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS cart_items (
			item_id SERIAL PRIMARY KEY,
			cart_id INT NOT NULL REFERENCES carts(cart_id),
			product_id INT NOT NULL REFERENCES products(product_id),
			quantity INT NOT NULL,
			unit_price NUMERIC NOT NULL,
			UNIQUE (cart_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			order_id SERIAL PRIMARY KEY,
			user_id INT NOT NULL REFERENCES users(user_id),
			status TEXT NOT NULL DEFAULT 'PENDING',
			total NUMERIC NOT NULL DEFAULT 0,
			created_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			item_id SERIAL PRIMARY KEY,
			order_id INT NOT NULL REFERENCES orders(order_id),
			product_id INT NOT NULL,
			quantity INT NOT NULL,
			unit_price NUMERIC NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			logrus.WithError(err).Fatal("schema setup failed")
		}
	}
}

// seedData loads a starter menu and test accounts the first time the
// service runs against an empty database.
func seedData(db *sql.DB) {
	now := time.Now().UTC().Format(time.RFC3339)

	var userCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&userCount); err == nil && userCount == 0 {
		accounts := []struct {
			name, email, password, role string
		}{
			{"Test Customer", "customer@example.com", "customer", user.RoleCustomer},
			{"Test Admin", "admin@example.com", "admin", user.RoleAdmin},
		}
		for _, a := range accounts {
			hashed, err := bcrypt.GenerateFromPassword([]byte(a.password), bcrypt.DefaultCost)
			if err != nil {
				continue
			}
			if _, err := db.Exec(
				`INSERT INTO users (name, email, password, role, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6)`,
				a.name, a.email, string(hashed), a.role, now, now,
			); err != nil {
				logrus.WithError(err).Warnf("could not seed user %s", a.email)
			}
		}
	}

	var productCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&productCount); err == nil && productCount == 0 {
		menu := []struct {
			name, desc, category string
			price                string
		}{
			{"Classic Burger", "180g patty, cheddar, lettuce, tomato, pickles and house mayo on a brioche bun.", "burger", "35.00"},
			{"Double Smash", "Two smashed patties, double cheddar, caramelized onions.", "burger", "42.00"},
			{"Veggie Burger", "Chickpea and mushroom patty, vegan mayo.", "burger", "33.00"},
			{"Cheddar Bacon Fries", "Fries covered in melted cheddar and bacon bits.", "side", "20.00"},
			{"Cola", "350ml can.", "drink", "6.00"},
			{"Mineral Water", "500ml bottle.", "drink", "4.50"},
			{"Petit Gateau", "Warm chocolate cake with vanilla ice cream.", "dessert", "18.00"},
		}
		for _, m := range menu {
			price, err := decimal.NewFromString(m.price)
			if err != nil {
				continue
			}
			if _, err := db.Exec(
				`INSERT INTO products (name, description, price, category, available) VALUES ($1,$2,$3,$4,TRUE)`,
				m.name, m.desc, price, m.category,
			); err != nil {
				logrus.WithError(err).Warnf("could not seed product %s", m.name)
			}
		}
	}
}
