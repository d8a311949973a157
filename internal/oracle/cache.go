package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/gnolang/bowtie/internal/smt"
)

// CacheConfig locates the reply store.
type CacheConfig struct {
	Dir      string
	InMemory bool
}

// OpenCacheDB opens the badger store backing a Cache. The caller closes it.
func OpenCacheDB(cfg CacheConfig, logger *zap.Logger) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Dir == "" {
			return nil, errors.New("cache directory is required")
		}
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithSyncWrites(false).WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open oracle cache: %w", err)
	}
	return db, nil
}

type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.logger.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.logger.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.logger.Debugf(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.logger.Debugf(format, args...) }

// Cache memoizes the replies of another Oracle. Keys hash a scope
// (see Config.CacheScope) together with the query, so one store can serve
// many obligations and provers. Failed and undecided calls are never
// stored.
type Cache struct {
	next   Oracle
	db     *badger.DB
	scope  string
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

var _ Oracle = (*Cache)(nil)

// NewCache wraps next. The scope must describe the prover and theory
// next was built with.
func NewCache(next Oracle, db *badger.DB, scope string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{next: next, db: db, scope: scope, logger: logger}
}

// Stats reports cache hits and misses so far.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) CheckValid(ctx context.Context, formula smt.Expr, want []smt.Expr) (Outcome, error) {
	key := c.key("valid", formula.String(), renderAll(want))
	var out Outcome
	if c.lookup(key, &out) {
		return out, nil
	}
	out, err := c.next.CheckValid(ctx, formula, want)
	if err != nil {
		return Outcome{}, err
	}
	if !out.Unknown {
		c.store(key, out)
	}
	return out, nil
}

func (c *Cache) CheckBatch(ctx context.Context, formulas []smt.Expr) ([]Outcome, error) {
	key := c.key("batch", renderAll(formulas))
	var out []Outcome
	if c.lookup(key, &out) && len(out) == len(formulas) {
		return out, nil
	}
	out, err := c.next.CheckBatch(ctx, formulas)
	if err != nil {
		return nil, err
	}
	for _, o := range out {
		if o.Unknown {
			return out, nil
		}
	}
	c.store(key, out)
	return out, nil
}

func (c *Cache) Simplify(ctx context.Context, formula smt.Expr) (smt.Expr, error) {
	key := c.key("simplify", formula.String())
	var text string
	if c.lookup(key, &text) {
		if e, err := smt.Parse(text); err == nil {
			return e, nil
		}
	}
	out, err := c.next.Simplify(ctx, formula)
	if err != nil {
		return nil, err
	}
	c.store(key, out.String())
	return out, nil
}

func (c *Cache) key(kind string, parts ...string) []byte {
	h := sha256.New()
	h.Write([]byte(c.scope))
	h.Write([]byte{0})
	h.Write([]byte(kind))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return h.Sum(nil)
}

// lookup treats any store failure as a miss.
func (c *Cache) lookup(key []byte, v any) bool {
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn("oracle cache read failed", zap.Error(err))
		}
		c.misses.Add(1)
		return false
	}
	c.hits.Add(1)
	return true
}

func (c *Cache) store(key []byte, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("oracle cache encode failed", zap.Error(err))
		return
	}
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	}); err != nil {
		c.logger.Warn("oracle cache write failed", zap.Error(err))
	}
}

func renderAll(es []smt.Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, "\n")
}
