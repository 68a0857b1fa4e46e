package sql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/unkn0wn-root/memocache/backend"
	"github.com/unkn0wn-root/memocache/backend/backendtest"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newStore(t *testing.T, db *gorm.DB, ns string) *SQL {
	t.Helper()
	s, err := New(Config{DB: db, Namespace: ns, AutoMigrate: true})
	require.NoError(t, err)
	return s
}

func TestConformance(t *testing.T) {
	db := newDB(t)
	backendtest.Run(t, func(t *testing.T, ns string) backend.Backend {
		return newStore(t, db, ns)
	}, backendtest.Options{})
}

func TestNewRequiresDB(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, ErrNilDB)
}

func TestClearEscapesWildcards(t *testing.T) {
	db := newDB(t)
	under := newStore(t, db, "a_b")
	other := newStore(t, db, "axb")

	under.Set("k", []byte("1"), 0)
	other.Set("k", []byte("2"), 0)
	under.Clear()

	assert.False(t, under.Has("k"))
	v, ok := other.Get("k")
	require.True(t, ok, "'_' in a namespace must not match arbitrary characters")
	assert.Equal(t, []byte("2"), v)
}

func TestSweepRemovesOnlyExpiredRowsOfNamespace(t *testing.T) {
	db := newDB(t)
	s := newStore(t, db, "ns")
	foreign := newStore(t, db, "other")

	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	s.now, foreign.now = clock, clock

	s.Set("stale", []byte("x"), time.Second)
	s.Set("live", []byte("y"), time.Hour)
	s.Set("forever", []byte("z"), 0)
	foreign.Set("stale", []byte("x"), time.Second)

	now = now.Add(2 * time.Second)
	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var rows int64
	require.NoError(t, db.Model(&entry{}).Count(&rows).Error)
	assert.EqualValues(t, 3, rows)
}

func TestExpiredRowDeletedOnRead(t *testing.T) {
	db := newDB(t)
	s := newStore(t, db, "ns")
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	s.Set("k", []byte("v"), time.Second)
	now = now.Add(time.Second)
	_, ok := s.Get("k")
	require.True(t, ok, "live at the expiry instant")

	now = now.Add(time.Nanosecond)
	_, ok = s.Get("k")
	require.False(t, ok)

	var rows int64
	require.NoError(t, db.Model(&entry{}).Where("cache_key = ?", "ns:k").Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestCancelledContextReturnsCtxErr(t *testing.T) {
	db := newDB(t)
	var reported []string
	s, err := New(Config{DB: db, Namespace: "ns", AutoMigrate: true, OnError: func(op, _ string, _ error) {
		reported = append(reported, op)
	}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.SetContext(ctx, "k", []byte("v"), 0)
	require.True(t, errors.Is(err, context.Canceled), "err = %v", err)
	assert.Equal(t, []string{"set"}, reported)
}

func TestOpenSQLiteOwnsConnection(t *testing.T) {
	s, err := OpenSQLite(":memory:", "", nil)
	require.NoError(t, err)
	assert.Equal(t, backend.DefaultNamespace, s.ns)

	s.Set("k", []byte("v"), 0)
	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
	require.NoError(t, s.Close(context.Background()))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\_b\%c\\:`, escapeLike(`a_b%c\:`))
	assert.Equal(t, "plain:", escapeLike("plain:"))
}
