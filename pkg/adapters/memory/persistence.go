package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/google/uuid"
)

// PrimaryKind is the failure-injection key of the primary record.
const PrimaryKind = "primary"

// Record is one stored entity.
type Record struct {
	ID        string         `json:"id"`
	ParentID  string         `json:"parent_id,omitempty"`
	Kind      string         `json:"kind"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
}

// Persistence implements ports.PersistenceService and ports.Compensator.
// Primary records are unique by their slug field; a parent holds at most one
// dependent of each kind.
type Persistence struct {
	mu        sync.RWMutex
	records   map[string]Record
	slugs     map[string]string
	uniqueKey string
	failures  map[string]error
	onCreate  func(Record)
}

// PersistenceOption configures Persistence.
type PersistenceOption func(*Persistence)

// WithUniqueField changes the primary field enforced as unique. Empty disables the check.
func WithUniqueField(field string) PersistenceOption {
	return func(p *Persistence) {
		p.uniqueKey = field
	}
}

// WithCreateHook is called, outside the lock, after every successful create.
func WithCreateHook(fn func(Record)) PersistenceOption {
	return func(p *Persistence) {
		p.onCreate = fn
	}
}

// NewPersistence creates an empty in-memory persistence service.
func NewPersistence(opts ...PersistenceOption) *Persistence {
	p := &Persistence{
		records:   make(map[string]Record),
		slugs:     make(map[string]string),
		uniqueKey: "slug",
		failures:  make(map[string]error),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FailOn makes every create of kind fail with err. Use PrimaryKind for the
// primary record and a nil error to clear the failure.
func (p *Persistence) FailOn(kind string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failures, kind)
		return
	}
	p.failures[kind] = err
}

// CreatePrimary stores the primary record.
func (p *Persistence) CreatePrimary(ctx context.Context, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	if err := p.failures[PrimaryKind]; err != nil {
		p.mu.Unlock()
		return "", err
	}

	unique := ""
	if v, ok := fields[p.uniqueKey]; ok && p.uniqueKey != "" && v != nil {
		unique = strings.TrimSpace(fmt.Sprint(v))
	}
	if _, taken := p.slugs[unique]; unique != "" && taken {
		p.mu.Unlock()
		return "", &domain.ConstraintViolationError{Field: p.uniqueKey, Message: fmt.Sprintf("%s %q is already taken", p.uniqueKey, unique)}
	}

	rec := Record{
		ID:        uuid.NewString(),
		Kind:      PrimaryKind,
		Fields:    map[string]any(domain.Draft(fields).Clone()),
		CreatedAt: time.Now(),
	}
	p.records[rec.ID] = rec
	if unique != "" {
		p.slugs[unique] = rec.ID
	}
	p.mu.Unlock()

	p.created(rec)
	return rec.ID, nil
}

// CreateDependent stores a record attached to parentID.
func (p *Persistence) CreateDependent(ctx context.Context, parentID, kind string, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	if err := p.failures[kind]; err != nil {
		p.mu.Unlock()
		return "", err
	}
	if _, ok := p.records[parentID]; !ok {
		p.mu.Unlock()
		return "", fmt.Errorf("parent record %q not found", parentID)
	}
	for _, r := range p.records {
		if r.ParentID == parentID && r.Kind == kind {
			p.mu.Unlock()
			return "", &domain.ConstraintViolationError{Message: fmt.Sprintf("record %q already has a %s", parentID, kind)}
		}
	}

	rec := Record{
		ID:        uuid.NewString(),
		ParentID:  parentID,
		Kind:      kind,
		Fields:    map[string]any(domain.Draft(fields).Clone()),
		CreatedAt: time.Now(),
	}
	p.records[rec.ID] = rec
	p.mu.Unlock()

	p.created(rec)
	return rec.ID, nil
}

// DeletePrimary removes a primary record and its dependents.
func (p *Persistence) DeletePrimary(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.records[id]; !ok {
		return fmt.Errorf("record %q not found", id)
	}
	for rid, r := range p.records {
		if r.ParentID == id {
			delete(p.records, rid)
		}
	}
	delete(p.records, id)
	for slug, owner := range p.slugs {
		if owner == id {
			delete(p.slugs, slug)
		}
	}
	return nil
}

// DeleteDependent removes one dependent record.
func (p *Persistence) DeleteDependent(ctx context.Context, parentID, kind, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.records[id]
	if !ok || r.ParentID != parentID || r.Kind != kind {
		return fmt.Errorf("%s record %q not found under %q", kind, id, parentID)
	}
	delete(p.records, id)
	return nil
}

// Get returns a stored record.
func (p *Persistence) Get(id string) (Record, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.records[id]
	return r, ok
}

// Dependents returns the records attached to parentID, sorted by kind.
func (p *Persistence) Dependents(parentID string) []Record {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []Record
	for _, r := range p.records {
		if r.ParentID == parentID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// Len returns the number of stored records.
func (p *Persistence) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.records)
}

func (p *Persistence) created(r Record) {
	if p.onCreate != nil {
		p.onCreate(r)
	}
}
