package table

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroomlabs/holdemd/internal/cache"
	"github.com/cardroomlabs/holdemd/internal/directory"
)

// Manager is the registry of live table sessions. Sessions are
// created lazily: the first reference to a table fetches its config
// from the directory and restores any cached hand state.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	opts  Options
	store cache.Store
	dir   directory.Client
	bcast Broadcaster
	clock quartz.Clock
	log   *log.Logger
}

// NewManager creates an empty registry
func NewManager(opts Options, store cache.Store, dir directory.Client, bcast Broadcaster, clock quartz.Clock, logger *log.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
		store:    store,
		dir:      dir,
		bcast:    bcast,
		clock:    clock,
		log:      logger,
	}
}

// Get returns the live session for a table, if any
func (m *Manager) Get(tableID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[tableID]
	return s, ok
}

// GetOrCreate returns the session for a table, creating it from the
// directory's table record on first use
func (m *Manager) GetOrCreate(ctx context.Context, tableID string) (*Session, error) {
	return m.GetOrCreateWith(ctx, tableID, directory.TableConfig{})
}

// GetOrCreateWith is GetOrCreate with caller-supplied table fields.
// Seat-player requests carry the table name, community and timeout;
// they fill whatever the directory's record leaves blank when the
// session is first created.
func (m *Manager) GetOrCreateWith(ctx context.Context, tableID string, hint directory.TableConfig) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[tableID]; ok {
		return s, nil
	}

	cfg, err := m.dir.GetTableConfig(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("table %s config: %w", tableID, err)
	}
	if cfg.Name == "" {
		cfg.Name = hint.Name
	}
	if cfg.CommunityID == "" {
		cfg.CommunityID = hint.CommunityID
	}
	if cfg.ActionTimeoutSeconds == 0 {
		cfg.ActionTimeoutSeconds = hint.ActionTimeoutSeconds
	}

	s := NewSession(cfg, m.opts, m.store, m.dir, m.bcast, m.clock, m.log)
	if err := s.Restore(ctx); err != nil {
		m.log.Warn("table restore failed, starting fresh", "table", tableID, "err", err)
	}
	m.sessions[tableID] = s
	m.log.Info("table session created", "table", tableID, "name", cfg.Name)
	return s, nil
}

// FindByUser returns the session holding a seat for the user, if any
func (m *Manager) FindByUser(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.HasSeat(userID) {
			return s, true
		}
	}
	return nil, false
}
