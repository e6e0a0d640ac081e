package repos

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokoku/internal/cart"
	"tokoku/internal/domain"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenDB_SeedsCatalogAndUsers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	cats, err := NewCategoryRepo(db).List(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 4)

	p, err := NewProductRepo(db).Get(ctx, "beras-5kg")
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(78000)))
	assert.Equal(t, 20, p.Stock)

	admin, err := NewUserRepo(db).ByEmail(ctx, "ADMIN@tokoku.test")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.Equal(t, "ADMIN2026", admin.ReferralCode)

	raw, ok, err := NewSettingsRepo(db).Get(ctx, "cod")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, string(raw), "delivery_fee")
}

func TestInventoryAdjust(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	inv := NewInventoryRepo(db)
	at := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	require.NoError(t, inv.Adjust(ctx, db, "minyak-2l", -2, domain.MoveSale, "o-1", at))
	qty, err := inv.Stock(ctx, "minyak-2l")
	require.NoError(t, err)
	assert.Equal(t, 1, qty)

	err = inv.Adjust(ctx, db, "minyak-2l", -2, domain.MoveSale, "o-2", at)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	qty, _ = inv.Stock(ctx, "minyak-2l")
	assert.Equal(t, 1, qty)

	moves, err := inv.Movements(ctx, "minyak-2l", 10)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, -2, moves[0].Delta)

	sold, err := inv.DailySold(ctx, at.AddDate(0, 0, -7))
	require.NoError(t, err)
	require.Len(t, sold["minyak-2l"], 1)
	assert.Equal(t, 2, sold["minyak-2l"][0].Qty)
}

func TestCartRepo_StoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := NewCartRepo(db)

	_, ok, err := r.Load(ctx, "sid-x")
	require.NoError(t, err)
	assert.False(t, ok)

	m := cart.NewManager("sid-x", r)
	_, err = m.AddItem(ctx, cart.CartItem{ProductID: "kopi-susu", Name: "Kopi", UnitPrice: decimal.NewFromInt(15000), Quantity: 2}, 0)
	require.NoError(t, err)

	s, ok, err := r.Load(ctx, "sid-x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, s.TotalPrice().Equal(decimal.NewFromInt(30000)))

	require.NoError(t, r.LinkUser(ctx, "sid-x", "u-siti"))
	sid, found, err := r.LatestForUser(ctx, "u-siti", "other")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "sid-x", sid)
}

func TestFlashSaleQuota(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fs := NewFlashSaleRepo(db)
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	require.NoError(t, fs.Create(ctx, db, domain.FlashSale{
		ID: "fs-1", Name: "Jumat Berkah",
		StartsAt: now.Add(-time.Hour).Format(domain.TimeLayout),
		EndsAt:   now.Add(time.Hour).Format(domain.TimeLayout),
	}))
	require.NoError(t, fs.AddItem(ctx, db, domain.FlashSaleItem{SaleID: "fs-1", ProductID: "kopi-susu", SalePrice: decimal.NewFromInt(12000), Quota: 3}))

	it, ok, err := fs.ActiveItem(ctx, db, "kopi-susu", now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, it.Remaining())
	assert.True(t, it.RegularPrice.Equal(decimal.NewFromInt(15000)))

	require.NoError(t, fs.AddSold(ctx, db, "fs-1", "kopi-susu", 2))
	assert.ErrorIs(t, fs.AddSold(ctx, db, "fs-1", "kopi-susu", 2), ErrQuotaExceeded)

	_, ok, err = fs.ActiveItem(ctx, db, "kopi-susu", now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	sales, err := fs.Active(ctx, now)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, 2, sales[0].Items[0].Sold)
}

func TestWithTx_RollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	inv := NewInventoryRepo(db)

	err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
		if err := inv.Adjust(ctx, tx, "beras-5kg", -5, domain.MoveSale, "o", time.Now()); err != nil {
			return err
		}
		return inv.Adjust(ctx, tx, "gula-1kg", -1, domain.MoveSale, "o", time.Now())
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	qty, err := inv.Stock(ctx, "beras-5kg")
	require.NoError(t, err)
	assert.Equal(t, 20, qty)
}

func TestFileDSN(t *testing.T) {
	assert.Equal(t,
		"file:data/tokoku.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		fileDSN("data/tokoku.db"))
	assert.Equal(t,
		"file:x.db?mode=rwc&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		fileDSN("file:x.db?mode=rwc"))
	own := "file:x.db?_pragma=busy_timeout(100)"
	assert.Equal(t, own, fileDSN(own))
}

func TestOpenDB_FileSetsPragmas(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "tokoku.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var mode string
	require.NoError(t, db.Get(&mode, `PRAGMA journal_mode`))
	assert.Equal(t, "wal", mode)
	var fk, timeout int
	require.NoError(t, db.Get(&fk, `PRAGMA foreign_keys`))
	assert.Equal(t, 1, fk)
	require.NoError(t, db.Get(&timeout, `PRAGMA busy_timeout`))
	assert.Equal(t, 5000, timeout)
}
