package repos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	applog "tokoku/internal/log"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = sql.ErrNoRows

// filePragmas apply to every connection the pool opens. Writers wait for the
// lock instead of failing with SQLITE_BUSY.
var filePragmas = []string{"busy_timeout(5000)", "journal_mode(WAL)", "foreign_keys(1)"}

// fileDSN turns a plain path into a file: URI carrying filePragmas. DSNs that
// already set their own pragmas are left alone.
func fileDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	uri := dsn
	if !strings.HasPrefix(uri, "file:") {
		uri = "file:" + uri
	}
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	for _, p := range filePragmas {
		uri += sep + "_pragma=" + p
		sep = "&"
	}
	return uri
}

func OpenDB(dsn string) (*sqlx.DB, error) {
	memory := dsn == ":memory:"
	if !memory {
		dsn = fileDSN(dsn)
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One writer at a time. For :memory: every extra connection would also
	// get its own empty database.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, errors.Wrap(err, "schema")
	}
	// Seed baseline data if DB is empty (categories/products/settings)
	if err := seedIfEmpty(db); err != nil {
		return nil, errors.Wrap(err, "seed catalog")
	}
	// Ensure users exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, errors.Wrap(err, "seed users")
	}

	return db, nil
}

// WithTx runs fn in a transaction, committing only if fn returns nil.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Catalog
CREATE TABLE IF NOT EXISTS categories(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  icon_url TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name_nocase ON categories(LOWER(name));

CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL CHECK (price >= 0),
  image_url TEXT NOT NULL DEFAULT '',
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_category   ON products(category_id);
CREATE INDEX IF NOT EXISTS idx_products_name       ON products(LOWER(name));
CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);

-- Every stock change, signed; sales are negative
CREATE TABLE IF NOT EXISTS stock_movements(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  delta INTEGER NOT NULL,
  reason TEXT NOT NULL CHECK (reason IN ('sale','purchase','return','adjustment')),
  ref_id TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_movements_product ON stock_movements(product_id, created_at);

-- Carts: one serialized cart state per session
CREATE TABLE IF NOT EXISTS carts(
  session_id TEXT PRIMARY KEY,
  user_id TEXT,
  state_json TEXT NOT NULL,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_carts_user ON carts(user_id);

-- Orders
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  user_id TEXT NOT NULL DEFAULT '',
  customer_name TEXT NOT NULL,
  customer_phone TEXT NOT NULL,
  customer_address TEXT NOT NULL,
  customer_email TEXT NOT NULL DEFAULT '',
  subtotal NUMERIC NOT NULL,
  shipping_cost NUMERIC NOT NULL,
  total NUMERIC NOT NULL,
  payment_method TEXT NOT NULL DEFAULT 'COD',
  status TEXT NOT NULL DEFAULT 'PENDING',
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);
CREATE INDEX IF NOT EXISTS idx_orders_session ON orders(session_id);
CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);

CREATE TABLE IF NOT EXISTS order_items(
  order_id  TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id),
  name TEXT NOT NULL,
  qty INTEGER NOT NULL CHECK (qty >= 1),
  unit_price NUMERIC NOT NULL,
  total_price NUMERIC NOT NULL,
  PRIMARY KEY (order_id, product_id)
);

-- Wishlists
CREATE TABLE IF NOT EXISTS wishlists(
  id TEXT PRIMARY KEY,
  session_id TEXT UNIQUE NOT NULL,
  updated_at TEXT
);

CREATE TABLE IF NOT EXISTS wishlist_items(
  wishlist_id TEXT NOT NULL REFERENCES wishlists(id) ON DELETE CASCADE,
  product_id  TEXT NOT NULL REFERENCES products(id) ON DELETE RESTRICT,
  created_at  TEXT,
  PRIMARY KEY (wishlist_id, product_id)
);

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  phone TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  referral_code TEXT UNIQUE,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

CREATE TABLE IF NOT EXISTS referrals(
  referrer_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  referred_id TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (referrer_id, referred_id)
);

CREATE TABLE IF NOT EXISTS reviews(
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
  comment TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (product_id, user_id)
);

-- Supplier purchases
CREATE TABLE IF NOT EXISTS suppliers(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS purchases(
  id TEXT PRIMARY KEY,
  supplier_id TEXT NOT NULL REFERENCES suppliers(id),
  payment_method TEXT NOT NULL CHECK (payment_method IN ('cash','credit')),
  total_amount NUMERIC NOT NULL CHECK (total_amount >= 0),
  due_date TEXT NOT NULL DEFAULT '',
  note TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS purchase_items(
  purchase_id TEXT NOT NULL REFERENCES purchases(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id),
  qty INTEGER NOT NULL CHECK (qty >= 1),
  unit_cost NUMERIC NOT NULL CHECK (unit_cost >= 0),
  PRIMARY KEY (purchase_id, product_id)
);

CREATE TABLE IF NOT EXISTS purchase_payments(
  id TEXT PRIMARY KEY,
  purchase_id TEXT NOT NULL REFERENCES purchases(id) ON DELETE CASCADE,
  amount NUMERIC NOT NULL CHECK (amount > 0),
  note TEXT NOT NULL DEFAULT '',
  paid_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_payments_purchase ON purchase_payments(purchase_id);

CREATE TABLE IF NOT EXISTS returns(
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id),
  product_id TEXT NOT NULL REFERENCES products(id),
  qty INTEGER NOT NULL CHECK (qty >= 1),
  reason TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'REQUESTED',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_returns_order ON returns(order_id);

CREATE TABLE IF NOT EXISTS flash_sales(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  starts_at TEXT NOT NULL,
  ends_at TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS flash_sale_items(
  sale_id TEXT NOT NULL REFERENCES flash_sales(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id),
  sale_price NUMERIC NOT NULL CHECK (sale_price >= 0),
  quota INTEGER NOT NULL CHECK (quota >= 1),
  sold INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (sale_id, product_id),
  CHECK (sold <= quota)
);

CREATE TABLE IF NOT EXISTS settings(
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT
);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	applog.L().Info().Msg("[seed] inserting demo categories/products/settings")

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	tx.MustExec(`INSERT INTO categories(id,name) VALUES
	  ('sembako','Sembako'),
	  ('minuman','Minuman'),
	  ('makanan-ringan','Makanan Ringan'),
	  ('perawatan','Perawatan Diri')`)

	tx.MustExec(`INSERT INTO products(id,category_id,name,description,price,stock) VALUES
	  ('beras-5kg','sembako','Beras Premium 5 kg','Beras pulen kemasan 5 kg',78000,20),
	  ('minyak-2l','sembako','Minyak Goreng 2 L','Minyak sawit kemasan pouch',36000,3),
	  ('gula-1kg','sembako','Gula Pasir 1 kg','Gula kristal putih',17500,0),
	  ('kopi-susu','minuman','Kopi Susu Botol','Kopi susu gula aren 250 ml',15000,40),
	  ('teh-melati','minuman','Teh Melati 25 sachet','Teh celup aroma melati',9000,12),
	  ('keripik-singkong','makanan-ringan','Keripik Singkong Pedas','Keripik singkong balado 200 g',12000,25),
	  ('sabun-mandi','perawatan','Sabun Mandi Cair 450 ml','Sabun cair aroma sereh',27000,8)`)

	tx.MustExec(`INSERT INTO suppliers(id,name,phone) VALUES
	  ('sup-sumber-rejeki','CV Sumber Rejeki','081200000001')`)

	tx.MustExec(`INSERT INTO settings(key,value,updated_at) VALUES
	  ('cod','{"enabled":true,"delivery_fee":10000,"min_order":20000,"free_shipping_threshold":150000}',CURRENT_TIMESTAMP)`)

	return tx.Commit()
}

// seedUsers ensures demo USERs and one ADMIN exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, Code, Hash string
	}
	mk := func(id, email, name, role, code, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, Email: email, Name: name, Role: role, Code: code, Hash: string(h)}
	}

	users := []u{
		mk("u-siti", "siti@tokoku.test", "Siti", "USER", "SITI2026", "Passw0rd!"),
		mk("u-budi", "budi@tokoku.test", "Budi", "USER", "BUDI2026", "Passw0rd!"),
		mk("u-admin", "admin@tokoku.test", "Admin", "ADMIN", "ADMIN2026", "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role,referral_code)
			VALUES(?,?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role, x.Code); err != nil {
			return err
		}
	}

	return tx.Commit()
}
