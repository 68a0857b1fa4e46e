// Package sql stores cache entries in a relational table through gorm.
// Any gorm dialector works; OpenSQLite wires the pure-Go glebarez driver.
package sql

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/unkn0wn-root/memocache/backend"
)

var ErrNilDB = errors.New("sql backend: nil *gorm.DB")

// entry is one row of cache_entries. ExpiresAt is unix nanos, 0 = never.
type entry struct {
	Key       string `gorm:"primaryKey;column:cache_key;size:512"`
	Value     []byte `gorm:"column:value"`
	ExpiresAt int64  `gorm:"column:expires_at;index"`
}

func (entry) TableName() string { return "cache_entries" }

type SQL struct {
	db    *gorm.DB
	ns    string
	owns  bool
	now   func() time.Time
	onErr backend.ErrorFunc
}

var _ backend.Backend = (*SQL)(nil)

type Config struct {
	DB          *gorm.DB
	Namespace   string
	AutoMigrate bool // create cache_entries if missing
	CloseDB     bool
	OnError     backend.ErrorFunc
}

func New(cfg Config) (*SQL, error) {
	if cfg.DB == nil {
		return nil, ErrNilDB
	}
	if cfg.AutoMigrate {
		if err := cfg.DB.AutoMigrate(&entry{}); err != nil {
			return nil, err
		}
	}
	s := &SQL{db: cfg.DB, ns: cfg.Namespace, owns: cfg.CloseDB, now: time.Now, onErr: cfg.OnError}
	if s.ns == "" {
		s.ns = backend.DefaultNamespace
	}
	if s.onErr == nil {
		s.onErr = backend.NopErrorFunc
	}
	return s, nil
}

// OpenSQLite opens (or creates) a SQLite database at dsn, migrates the
// table and returns a backend that owns the connection.
func OpenSQLite(dsn, namespace string, onErr backend.ErrorFunc) (*SQL, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if strings.Contains(dsn, ":memory:") {
		// every pooled connection would get its own empty database
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	return New(Config{DB: db, Namespace: namespace, AutoMigrate: true, CloseDB: true, OnError: onErr})
}

func (s *SQL) GetContext(ctx context.Context, key string) ([]byte, bool, error) {
	k := backend.Key(s.ns, key)
	var e entry
	err := s.db.WithContext(ctx).Where("cache_key = ?", k).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		s.onErr("get", k, err)
		return nil, false, backend.CtxErr(ctx, err)
	}
	if e.ExpiresAt > 0 && s.now().UnixNano() > e.ExpiresAt {
		if err := s.db.WithContext(ctx).Where("cache_key = ? AND expires_at = ?", k, e.ExpiresAt).Delete(&entry{}).Error; err != nil {
			s.onErr("get", k, err)
		}
		return nil, false, nil
	}
	if e.Value == nil {
		e.Value = []byte{}
	}
	return e.Value, true, nil
}

func (s *SQL) SetContext(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	k := backend.Key(s.ns, key)
	e := entry{Key: k, Value: value}
	if e.Value == nil {
		e.Value = []byte{}
	}
	if ttl > 0 {
		e.ExpiresAt = s.now().Add(ttl).UnixNano()
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&e).Error
	if err != nil {
		s.onErr("set", k, err)
		return backend.CtxErr(ctx, err)
	}
	return nil
}

func (s *SQL) DeleteContext(ctx context.Context, key string) error {
	k := backend.Key(s.ns, key)
	if err := s.db.WithContext(ctx).Where("cache_key = ?", k).Delete(&entry{}).Error; err != nil {
		s.onErr("delete", k, err)
		return backend.CtxErr(ctx, err)
	}
	return nil
}

func (s *SQL) HasContext(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.GetContext(ctx, key)
	return ok, err
}

func (s *SQL) ClearContext(ctx context.Context) error {
	prefix := backend.Prefix(s.ns)
	err := s.db.WithContext(ctx).
		Where(`cache_key LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Delete(&entry{}).Error
	if err != nil {
		s.onErr("clear", prefix, err)
		return backend.CtxErr(ctx, err)
	}
	return nil
}

// Sweep deletes every expired row of this namespace and returns how many
// were removed. The table is never swept implicitly.
func (s *SQL) Sweep(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where(`cache_key LIKE ? ESCAPE '\' AND expires_at > 0 AND expires_at < ?`,
			escapeLike(backend.Prefix(s.ns))+"%", s.now().UnixNano()).
		Delete(&entry{})
	return res.RowsAffected, res.Error
}

func (s *SQL) Get(key string) ([]byte, bool) {
	v, ok, _ := s.GetContext(context.Background(), key)
	return v, ok
}

func (s *SQL) Set(key string, value []byte, ttl time.Duration) {
	_ = s.SetContext(context.Background(), key, value, ttl)
}

func (s *SQL) Delete(key string) { _ = s.DeleteContext(context.Background(), key) }

func (s *SQL) Has(key string) bool {
	ok, _ := s.HasContext(context.Background(), key)
	return ok
}

func (s *SQL) Clear() { _ = s.ClearContext(context.Background()) }

func (s *SQL) Close(_ context.Context) error {
	if !s.owns {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func escapeLike(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
