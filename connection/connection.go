// Package connection keeps named database connections.
//
// A Manager holds connection settings by name and opens each
// connection on first use.  Entities bind themselves to a named
// connection when they are created.  The sqlite3 driver is always
// registered; other database/sql drivers may be imported by the
// application.
package connection

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	// sqlite3 is the default driver
	_ "github.com/mattn/go-sqlite3"
)

// DefaultName is used when no connection name is given.
const DefaultName = "default"

// DefaultDriver is used when a Config names no driver.
const DefaultDriver = "sqlite3"

// Config describes one connection.
type Config struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// ErrUnknown is returned for names that were never created.
var ErrUnknown = errors.New("unknown connection")

// ErrNotConnected is returned by Get before Connect.
var ErrNotConnected = errors.New("connection not open")

// Manager owns named connections.  It is safe for concurrent use.
type Manager struct {
	lock    sync.RWMutex
	configs map[string]Config
	conns   map[string]*sql.DB
}

func NewManager() *Manager {
	return &Manager{
		configs: make(map[string]Config),
		conns:   make(map[string]*sql.DB),
	}
}

// Create registers a connection.  Nothing is opened yet.
func (m *Manager) Create(name string, cfg Config) error {
	if name == "" {
		name = DefaultName
	}
	if cfg.DSN == "" {
		return errors.Errorf("connection %s: no dsn", name)
	}
	if cfg.Driver == "" {
		cfg.Driver = DefaultDriver
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, ok := m.configs[name]; ok {
		return errors.Errorf("connection %s already exists", name)
	}
	m.configs[name] = cfg
	return nil
}

// Connect opens the named connection, if it is not open already, and
// checks it with a ping.  The manager is not locked while the ping is
// in flight; when two callers race, the first stored connection wins
// and the other is closed.
func (m *Manager) Connect(ctx context.Context, name string) (*sql.DB, error) {
	if name == "" {
		name = DefaultName
	}
	m.lock.RLock()
	db, open := m.conns[name]
	cfg, known := m.configs[name]
	m.lock.RUnlock()
	if open {
		return db, nil
	}
	if !known {
		return nil, errors.Wrap(ErrUnknown, name)
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "open connection %s", name)
	}
	configure(db, cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping connection %s", name)
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	if existing, ok := m.conns[name]; ok {
		_ = db.Close()
		return existing, nil
	}
	m.conns[name] = db
	return db, nil
}

func configure(db *sql.DB, cfg Config) {
	// every connection to :memory: is a separate database
	if cfg.DSN == ":memory:" {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

// ConnectAll opens every created connection.
func (m *Manager) ConnectAll(ctx context.Context) error {
	for _, name := range m.Names() {
		if _, err := m.Connect(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Get returns an open connection.
func (m *Manager) Get(name string) (*sql.DB, error) {
	if name == "" {
		name = DefaultName
	}
	m.lock.RLock()
	defer m.lock.RUnlock()
	if db, ok := m.conns[name]; ok {
		return db, nil
	}
	if _, ok := m.configs[name]; !ok {
		return nil, errors.Wrap(ErrUnknown, name)
	}
	return nil, errors.Wrap(ErrNotConnected, name)
}

// Names lists created connections, sorted.
func (m *Manager) Names() []string {
	m.lock.RLock()
	defer m.lock.RUnlock()
	names := make([]string, 0, len(m.configs))
	for name := range m.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every open connection.  Connections stay created and
// may be opened again.
func (m *Manager) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	var err error
	for name, db := range m.conns {
		err = multierr.Append(err, errors.Wrapf(db.Close(), "close connection %s", name))
		delete(m.conns, name)
	}
	return err
}
