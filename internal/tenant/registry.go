// Package tenant manages the lifecycle of per-tenant SQLite databases:
// lazy provisioning keyed by sanitized slug, idempotent schema patching
// and one-time seeding of fresh files.
package tenant

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/glebarez/sqlite"
	"github.com/kerm1977/altair/pkg/config"
	"github.com/kerm1977/altair/pkg/logger"
	"github.com/kerm1977/altair/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Registry caches one open database handle per sanitized slug for the
// process lifetime. First access provisions the schema and, for files
// that did not exist yet, writes the seed records.
type Registry struct {
	cfg *config.Config

	mu      sync.Mutex
	handles map[string]*gorm.DB
	// locks holds one provisioning lock per slug so two concurrent first
	// requests for the same tenant cannot double-seed, without a single
	// global lock serializing unrelated tenants.
	locks map[string]*sync.Mutex
}

// NewRegistry creates an empty registry over the configured data directory.
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{
		cfg:     cfg,
		handles: make(map[string]*gorm.DB),
		locks:   make(map[string]*sync.Mutex),
	}
}

// SanitizeSlug strips every character that is not an ASCII letter or
// digit. The empty result is a valid degenerate tenant.
func SanitizeSlug(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Resolve returns the cached handle for the slug's tenant, provisioning
// the database first if this process has never seen the slug. Exactly one
// handle exists per sanitized slug; provisioning failures leave no cache
// entry behind.
func (r *Registry) Resolve(slug string) (*gorm.DB, error) {
	safe := SanitizeSlug(slug)

	r.mu.Lock()
	if db, ok := r.handles[safe]; ok {
		r.mu.Unlock()
		return db, nil
	}
	lock, ok := r.locks[safe]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[safe] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	// Another request may have provisioned while we waited on the lock.
	r.mu.Lock()
	if db, ok := r.handles[safe]; ok {
		r.mu.Unlock()
		return db, nil
	}
	r.mu.Unlock()

	db, err := r.provision(safe)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.handles[safe] = db
	r.mu.Unlock()
	prometheus.OpenTenantsGauge.Inc()

	return db, nil
}

// provision opens or creates the tenant file, ensures the schema and
// seeds fresh files. The existence check must happen before opening,
// since opening creates the file as a side effect.
func (r *Registry) provision(safe string) (*gorm.DB, error) {
	log := logger.GetLogger()

	if err := os.MkdirAll(r.cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(r.cfg.Storage.DataDir, safe+".db")
	_, statErr := os.Stat(path)
	existed := statErr == nil

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		path, r.cfg.Storage.BusyTimeout.Milliseconds())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(r.cfg.Storage.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open tenant db %q: %w", safe, err)
	}

	if err := EnsureSchema(db); err != nil {
		r.discard(db, path, !existed)
		return nil, fmt.Errorf("provision tenant %q: %w", safe, err)
	}

	if !existed {
		if err := Seed(db, safe, r.cfg); err != nil {
			// Remove the fresh file so the next resolve starts over
			// instead of finding an existing-but-unseeded tenant.
			r.discard(db, path, true)
			return nil, fmt.Errorf("seed tenant %q: %w", safe, err)
		}
		prometheus.TenantProvisionedCounter.Inc()
		log.Info("Tenant database created and seeded", zap.String("slug", safe))
	}

	return db, nil
}

func (r *Registry) discard(db *gorm.DB, path string, remove bool) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if remove {
		_ = os.Remove(path)
	}
}

// Shutdown closes every cached handle. Only useful at process exit;
// handles are otherwise cached for the process lifetime.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for slug, db := range r.handles {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		delete(r.handles, slug)
		prometheus.OpenTenantsGauge.Dec()
	}
}
