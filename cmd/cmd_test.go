package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/facturas/config"
	"github.com/yourusername/facturas/internal/testutil"
	"github.com/yourusername/facturas/invoicing"
	"github.com/yourusername/facturas/lock"
	"github.com/yourusername/facturas/models"
	"github.com/yourusername/facturas/store"
	"github.com/yourusername/facturas/utils"
)

func TestCreateRootAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)

	user, err := createRootAdmin(db, " admin ", "secret123", "Administrador")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.True(t, user.IsRoot)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.True(t, utils.CheckPasswordHash("secret123", user.PasswordHash))

	_, err = createRootAdmin(db, "otro", "secret123", "Otro")
	assert.ErrorContains(t, err, "already exists")

	_, err = createRootAdmin(testutil.SetupTestDB(t), "admin", "123", "Corto")
	assert.Error(t, err)
}

func TestResetPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, err := createRootAdmin(db, "admin", "secret123", "Administrador")
	require.NoError(t, err)

	require.NoError(t, resetPassword(db, "admin", "nueva-clave"))

	var user models.User
	require.NoError(t, db.Where("username = ?", "admin").First(&user).Error)
	assert.True(t, utils.CheckPasswordHash("nueva-clave", user.PasswordHash))
	assert.True(t, user.MustChangePassword)

	assert.ErrorContains(t, resetPassword(db, "nadie", "nueva-clave"), "not found")
}

func TestNewLocker(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		locker, closeLocker, err := newLocker(&config.Config{LockBackend: config.LockBackendMemory})
		require.NoError(t, err)
		defer closeLocker()
		assert.IsType(t, &lock.MemoryLocker{}, locker)
	})

	t.Run("Redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		locker, closeLocker, err := newLocker(&config.Config{LockBackend: config.LockBackendRedis, RedisAddr: mr.Addr(), LockTTL: time.Second})
		require.NoError(t, err)
		defer closeLocker()
		assert.IsType(t, &lock.RedisLocker{}, locker)

		unlock, err := locker.Lock(context.Background(), lock.CompanyKey(1))
		require.NoError(t, err)
		assert.True(t, mr.Exists(lock.CompanyKey(1)))
		unlock()
		assert.False(t, mr.Exists(lock.CompanyKey(1)))
	})

	t.Run("Redis Unreachable", func(t *testing.T) {
		_, _, err := newLocker(&config.Config{LockBackend: config.LockBackendRedis, RedisAddr: "127.0.0.1:1"})
		assert.Error(t, err)
	})
}

func TestValidateChains(t *testing.T) {
	db := testutil.SetupTestDB(t)
	service := newService(&config.Config{}, store.New(db), lock.NewMemoryLocker())
	ctx := context.Background()

	chained := models.Company{Name: "Encadenada SL", CIF: "B11111111", VerifactuEnabled: true}
	plain := models.Company{Name: "Sin Cadena SL", CIF: "B22222222"}
	require.NoError(t, db.Create(&chained).Error)
	require.NoError(t, db.Create(&plain).Error)

	var last *models.Invoice
	for i := 0; i < 2; i++ {
		draft, err := service.Create(ctx, invoicing.InvoiceInput{
			CompanyID:  chained.ID,
			ClientName: "Cliente SL",
			ClientCIF:  "B87654321",
			Items: []invoicing.ItemInput{{
				Description: "Servicio",
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   decimal.NewFromInt(100),
				VATRate:     decimal.NewFromInt(21),
			}},
		})
		require.NoError(t, err)
		last, err = service.Finalize(ctx, draft.ID)
		require.NoError(t, err)
	}

	var out bytes.Buffer
	require.NoError(t, validateChains(ctx, &out, db, service, nil))
	assert.Contains(t, out.String(), "OK (2 invoices, last sequence 2)")
	assert.NotContains(t, out.String(), "Sin Cadena")

	require.NoError(t, db.Model(&models.Invoice{}).Where("id = ?", last.ID).Update("previous_hash", "0000000000000000").Error)

	out.Reset()
	err := validateChains(ctx, &out, db, service, []uint{chained.ID, plain.ID})
	require.Error(t, err)
	assert.True(t, IsChainBroken(err))
	assert.Contains(t, out.String(), "BROKEN at "+last.InvoiceNumber)
	assert.Contains(t, out.String(), "OK (0 invoices")
}

func TestMigrateCommand(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("LOCK_BACKEND", "")
	t.Setenv("LOG_OUTPUT", "stderr")

	rootCmd.SetArgs([]string{"migrate"})
	require.NoError(t, rootCmd.Execute())
	require.NotNil(t, cfg)

	db, err := config.InitDB(cfg)
	require.NoError(t, err)
	for _, model := range models.All() {
		assert.True(t, db.Migrator().HasTable(model))
	}
}
