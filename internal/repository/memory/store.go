package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/domain/repositories"
)

// Store is an in-process backend for every wiki repository. It backs the
// memory storage driver and the service tests.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	now  func() time.Time

	pages       map[string]*wiki.Page
	pathIndex   map[string]string // path -> page id
	revisions   map[string]*wiki.Revision
	groups      map[string]*wiki.UserGroup
	members     map[string]map[string]struct{} // group id -> user ids
	bookmarks   map[string]*wiki.Bookmark
	comments    map[string]*wiki.Comment
	attachments map[string]*wiki.Attachment
	tags        map[string][]string // page id -> tags
	shareLinks  map[string]*wiki.ShareLink
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:         time.Now,
		pages:       make(map[string]*wiki.Page),
		pathIndex:   make(map[string]string),
		revisions:   make(map[string]*wiki.Revision),
		groups:      make(map[string]*wiki.UserGroup),
		members:     make(map[string]map[string]struct{}),
		bookmarks:   make(map[string]*wiki.Bookmark),
		comments:    make(map[string]*wiki.Comment),
		attachments: make(map[string]*wiki.Attachment),
		tags:        make(map[string][]string),
		shareLinks:  make(map[string]*wiki.ShareLink),
	}
}

// SetClock replaces the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

type snapshot struct {
	pages       map[string]*wiki.Page
	pathIndex   map[string]string
	revisions   map[string]*wiki.Revision
	groups      map[string]*wiki.UserGroup
	members     map[string]map[string]struct{}
	bookmarks   map[string]*wiki.Bookmark
	comments    map[string]*wiki.Comment
	attachments map[string]*wiki.Attachment
	tags        map[string][]string
	shareLinks  map[string]*wiki.ShareLink
}

// Stored values are never mutated in place (writers replace them), so a
// shallow copy of each map is a consistent snapshot.
func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make(map[string]map[string]struct{}, len(s.members))
	for g, users := range s.members {
		members[g] = maps.Clone(users)
	}
	return snapshot{
		pages:       maps.Clone(s.pages),
		pathIndex:   maps.Clone(s.pathIndex),
		revisions:   maps.Clone(s.revisions),
		groups:      maps.Clone(s.groups),
		members:     members,
		bookmarks:   maps.Clone(s.bookmarks),
		comments:    maps.Clone(s.comments),
		attachments: maps.Clone(s.attachments),
		tags:        maps.Clone(s.tags),
		shareLinks:  maps.Clone(s.shareLinks),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pages = snap.pages
	s.pathIndex = snap.pathIndex
	s.revisions = snap.revisions
	s.groups = snap.groups
	s.members = snap.members
	s.bookmarks = snap.bookmarks
	s.comments = snap.comments
	s.attachments = snap.attachments
	s.tags = snap.tags
	s.shareLinks = snap.shareLinks
}

type txKey struct{}

// TransactionManager gives the store all-or-nothing cascades by restoring a
// snapshot when the transaction function fails. Transactions are serialized
// with each other; writes made outside a transaction while one is running
// are lost if it rolls back.
type TransactionManager struct {
	store *Store
}

// NewTransactionManager creates a transaction manager over s
func NewTransactionManager(s *Store) repositories.TransactionManager {
	return &TransactionManager{store: s}
}

// ExecTx runs fn atomically, joining an enclosing transaction if present.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	tm.store.txMu.Lock()
	defer tm.store.txMu.Unlock()

	snap := tm.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		tm.store.restore(snap)
		return err
	}
	return nil
}
