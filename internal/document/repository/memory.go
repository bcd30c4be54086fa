package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/domperidog/docshare/internal/document"
	"github.com/google/uuid"
)

type memoryEntry struct {
	doc *document.Document
	seq int64
}

// MemoryRepo is an in-memory document store used when MongoDB is not
// configured and by unit tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	seq   int64
	store map[string]*memoryEntry
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*memoryEntry)}
}

func (m *MemoryRepo) FindByID(ctx context.Context, id string) (*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.store[id]; ok {
		return e.doc.Clone(), nil
	}
	return nil, nil
}

func (m *MemoryRepo) matching(f Filter) []*memoryEntry {
	out := make([]*memoryEntry, 0)
	for _, e := range m.store {
		if f.matches(e.doc) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.doc.CreationDate.Equal(b.doc.CreationDate) {
			return a.doc.CreationDate.After(b.doc.CreationDate)
		}
		return a.seq > b.seq
	})
	return out
}

func (m *MemoryRepo) Find(ctx context.Context, f Filter, skip, limit int64) ([]*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.matching(f)
	if skip < 0 {
		skip = 0
	}
	out := make([]*document.Document, 0)
	for i := skip; i < int64(len(all)); i++ {
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
		out = append(out, all[i].doc.Clone())
	}
	return out, nil
}

func (m *MemoryRepo) Count(ctx context.Context, f Filter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.matching(f))), nil
}

func (m *MemoryRepo) Insert(ctx context.Context, d *document.Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreationDate.IsZero() {
		d.CreationDate = time.Now().UTC()
	}
	if d.Editors == nil {
		d.Editors = []string{}
	}
	m.seq++
	m.store[d.ID] = &memoryEntry{doc: d.Clone(), seq: m.seq}
	return d.ID, nil
}

func (m *MemoryRepo) UpdateFields(ctx context.Context, id string, fields Fields) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.store[id]
	if !ok {
		return nil, nil
	}
	if fields.Title != nil {
		e.doc.Title = *fields.Title
	}
	if fields.Content != nil {
		e.doc.Content = *fields.Content
	}
	if fields.Public != nil {
		e.doc.Public = *fields.Public
	}
	return e.doc.Clone(), nil
}

func (m *MemoryRepo) ToggleEditor(ctx context.Context, id, username string) (*document.Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.store[id]
	if !ok {
		return nil, false, ErrNotFound
	}
	if e.doc.Author == username {
		return nil, false, errAuthorAsEditor
	}
	for i, ed := range e.doc.Editors {
		if ed == username {
			e.doc.Editors = append(e.doc.Editors[:i:i], e.doc.Editors[i+1:]...)
			return e.doc.Clone(), false, nil
		}
	}
	e.doc.Editors = append(e.doc.Editors, username)
	return e.doc.Clone(), true, nil
}

func (m *MemoryRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (f Filter) matches(d *document.Document) bool {
	if f.Author != "" && d.Author != f.Author {
		return false
	}
	if len(f.IDs) > 0 && !contains(f.IDs, d.ID) {
		return false
	}
	if f.PublicOnly && !d.Public {
		return false
	}
	if f.ReadableBy != "" && !d.Public && d.Author != f.ReadableBy && !d.HasEditor(f.ReadableBy) {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(d.Title), q) &&
			!strings.Contains(strings.ToLower(d.Content), q) &&
			!strings.Contains(strings.ToLower(d.Author), q) {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
