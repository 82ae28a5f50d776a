package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureSchema provisions the retail tables. The advisory lock serializes
// DDL across concurrently starting processes.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS customers (
	id INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS customer_addresses (
	id INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	customer_id INTEGER NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
	label TEXT NOT NULL,
	street TEXT NOT NULL,
	city TEXT NOT NULL,
	state TEXT NOT NULL,
	postal_code TEXT NOT NULL,
	country TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
	id INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS items (
	id INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	price NUMERIC(10,2) NOT NULL,
	category_id INTEGER REFERENCES categories(id)
);

CREATE TABLE IF NOT EXISTS suppliers (
	id INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	contact_email TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS item_suppliers (
	id INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	supplier_id INTEGER NOT NULL REFERENCES suppliers(id) ON DELETE CASCADE,
	wholesale_price NUMERIC(10,2) NOT NULL,
	lead_time_days INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS purchases (
	id INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	customer_id INTEGER NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
	item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	shipping_address_id INTEGER REFERENCES customer_addresses(id),
	quantity INTEGER NOT NULL DEFAULT 1,
	total_amount NUMERIC(10,2) NOT NULL,
	purchased_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_purchases_customer_id ON purchases(customer_id);
CREATE INDEX IF NOT EXISTS idx_purchases_item_id ON purchases(item_id);
CREATE INDEX IF NOT EXISTS idx_item_suppliers_item_id ON item_suppliers(item_id);
`
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Seed loads the deterministic demo dataset. It starts from a clean slate
// so repeated runs do not duplicate rows.
func Seed(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, table := range []string{"purchases", "item_suppliers", "customer_addresses", "customers", "items", "suppliers", "categories"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	statements := []struct {
		query string
		args  [][]any
	}{
		{
			query: `INSERT INTO categories (id, name) VALUES ($1, $2)`,
			args: [][]any{
				{1, "Peripherals"},
				{2, "Monitors"},
				{3, "Accessories"},
			},
		},
		{
			query: `INSERT INTO suppliers (id, name, contact_email) VALUES ($1, $2, $3)`,
			args: [][]any{
				{1, "Acme Distribution", "sales@acme.com"},
				{2, "Brightline Wholesale", "hello@brightline.com"},
			},
		},
		{
			query: `INSERT INTO customers (id, name, email) VALUES ($1, $2, $3)`,
			args: [][]any{
				{1, "Alice Johnson", "alice@example.com"},
				{2, "Brian Lee", "brian@example.com"},
				{3, "Carla Mendes", "carla@example.com"},
			},
		},
		{
			query: `INSERT INTO customer_addresses (id, customer_id, label, street, city, state, postal_code, country) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			args: [][]any{
				{1, 1, "Home", "123 Maple Street", "Springfield", "IL", "62704", "USA"},
				{2, 1, "Office", "1 Innovation Way", "Chicago", "IL", "60601", "USA"},
				{3, 2, "Home", "500 Ocean Avenue", "San Francisco", "CA", "94107", "USA"},
				{4, 3, "Home", "90 Greenway Plaza", "Austin", "TX", "73301", "USA"},
			},
		},
		{
			query: `INSERT INTO items (id, name, price, category_id) VALUES ($1, $2, $3, $4)`,
			args: [][]any{
				{1, "Wireless Mouse", "29.99", 1},
				{2, "Mechanical Keyboard", "129.50", 1},
				{3, "27-inch Monitor", "249.00", 2},
				{4, "USB-C Hub", "59.95", 3},
				{5, "Noise-Cancelling Headset", "199.00", 1},
			},
		},
		{
			query: `INSERT INTO item_suppliers (id, item_id, supplier_id, wholesale_price, lead_time_days) VALUES ($1, $2, $3, $4, $5)`,
			args: [][]any{
				{1, 1, 1, "19.99", 5},
				{2, 2, 1, "95.00", 10},
				{3, 3, 2, "210.00", 12},
				{4, 4, 2, "42.50", 7},
				{5, 5, 1, "150.00", 9},
				{6, 5, 2, "155.00", 6},
			},
		},
		{
			query: `INSERT INTO purchases (id, customer_id, item_id, shipping_address_id, quantity, total_amount, purchased_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			args: [][]any{
				{1, 1, 1, 1, 1, "29.99", seedTime(2025, 5, 12)},
				{2, 1, 3, 2, 1, "249.00", seedTime(2025, 6, 3)},
				{3, 2, 2, 3, 2, "259.00", seedTime(2025, 6, 18)},
				{4, 2, 4, 3, 1, "59.95", seedTime(2025, 7, 2)},
				{5, 3, 1, 4, 3, "89.97", seedTime(2025, 7, 21)},
				{6, 3, 5, 4, 1, "199.00", seedTime(2025, 8, 9)},
			},
		},
	}

	for _, stmt := range statements {
		for _, args := range stmt.args {
			if _, err := tx.ExecContext(ctx, stmt.query, args...); err != nil {
				return fmt.Errorf("seed insert: %w", err)
			}
		}
	}

	// Explicit ids were used above; move the identity sequences past them.
	resets := map[string]int{
		"categories":         3,
		"suppliers":          2,
		"customers":          3,
		"customer_addresses": 4,
		"items":              5,
		"item_suppliers":     6,
		"purchases":          6,
	}
	for table, max := range resets {
		query := fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%s', 'id'), $1)`, table)
		if _, err := tx.ExecContext(ctx, query, max); err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}

func seedTime(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 10, 0, 0, 0, time.UTC)
}
