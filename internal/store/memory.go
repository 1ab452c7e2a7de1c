package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// MemoryContainer is an in-process Container. It understands the query
// shapes the report jobs use: "SELECT * FROM c" with an optional WHERE
// clause of c.<field> = @param / 'literal' terms joined by AND.
//
// It backs --dry-run and the job tests.
type MemoryContainer struct {
	name string

	mu    sync.Mutex
	items map[memKey]json.RawMessage
	order []memKey

	// Counters of successful operations, for assertions.
	Creates, Upserts, Replaces, Deletes int

	// FailWrite, when set, is consulted before every Create, Upsert and
	// Replace; a non-nil return fails the operation.
	FailWrite func(doc Document) error
}

type memKey struct {
	partition string
	id        string
}

var _ Container = (*MemoryContainer)(nil)

// NewMemoryContainer returns an empty container.
func NewMemoryContainer(name string) *MemoryContainer {
	return &MemoryContainer{name: name, items: make(map[memKey]json.RawMessage)}
}

// Name implements Container.
func (m *MemoryContainer) Name() string { return m.name }

// Len returns the number of stored items.
func (m *MemoryContainer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Items returns every stored item in insertion order.
func (m *MemoryContainer) Items() []json.RawMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]json.RawMessage, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.items[k])
	}
	return out
}

// Seed stores docs without counting them as writes.
func (m *MemoryContainer) Seed(docs ...Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		body, err := json.Marshal(d)
		if err != nil {
			return err
		}
		m.put(memKey{d.PartitionKey(), d.DocumentID()}, body)
	}
	return nil
}

var (
	selectRe = regexp.MustCompile(`(?is)^\s*SELECT\s+\*\s+FROM\s+c(?:\s+WHERE\s+(.+?))?\s*$`)
	andRe    = regexp.MustCompile(`(?i)\s+AND\s+`)
	termRe   = regexp.MustCompile(`^c\.(\w+)\s*=\s*(@\w+|'[^']*')$`)
)

type memTerm struct {
	field string
	value string
}

// Query implements Container.
func (m *MemoryContainer) Query(_ context.Context, q Query) ([]json.RawMessage, error) {
	terms, err := parseMemQuery(q)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []json.RawMessage
	for _, k := range m.order {
		if q.PartitionKey != "" && k.partition != q.PartitionKey {
			continue
		}
		raw := m.items[k]
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode stored item %q: %w", k.id, err)
		}
		if matchesTerms(fields, terms) {
			out = append(out, raw)
		}
	}
	return out, nil
}

func parseMemQuery(q Query) ([]memTerm, error) {
	m := selectRe.FindStringSubmatch(q.SQL)
	if m == nil {
		return nil, fmt.Errorf("memory container: unsupported query %q", q.SQL)
	}
	if m[1] == "" {
		return nil, nil
	}
	params := make(map[string]string, len(q.Parameters))
	for _, p := range q.Parameters {
		params[p.Name] = fmt.Sprint(p.Value)
	}
	var terms []memTerm
	for _, raw := range andRe.Split(strings.TrimSpace(m[1]), -1) {
		t := termRe.FindStringSubmatch(strings.TrimSpace(raw))
		if t == nil {
			return nil, fmt.Errorf("memory container: unsupported condition %q", raw)
		}
		value := t[2]
		if strings.HasPrefix(value, "@") {
			v, ok := params[value]
			if !ok {
				return nil, fmt.Errorf("memory container: missing parameter %s", value)
			}
			value = v
		} else {
			value = strings.Trim(value, "'")
		}
		terms = append(terms, memTerm{field: t[1], value: value})
	}
	return terms, nil
}

func matchesTerms(fields map[string]any, terms []memTerm) bool {
	for _, t := range terms {
		v, ok := fields[t.field]
		if !ok || fmt.Sprint(v) != t.value {
			return false
		}
	}
	return true
}

// Create implements Container.
func (m *MemoryContainer) Create(_ context.Context, doc Document) error {
	body, err := m.prepare(doc, doc.DocumentID())
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey{doc.PartitionKey(), doc.DocumentID()}
	if _, exists := m.items[k]; exists {
		return fmt.Errorf("create %q in %q: %w", k.id, m.name, ErrConflict)
	}
	m.put(k, body)
	m.Creates++
	return nil
}

// Upsert implements Container.
func (m *MemoryContainer) Upsert(_ context.Context, doc Document) error {
	body, err := m.prepare(doc, doc.DocumentID())
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(memKey{doc.PartitionKey(), doc.DocumentID()}, body)
	m.Upserts++
	return nil
}

// Replace implements Container.
func (m *MemoryContainer) Replace(_ context.Context, id string, doc Document) error {
	body, err := m.prepare(doc, id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey{doc.PartitionKey(), id}
	if _, exists := m.items[k]; !exists {
		return fmt.Errorf("replace %q in %q: %w", id, m.name, ErrNotFound)
	}
	m.items[k] = body
	m.Replaces++
	return nil
}

// Delete implements Container.
func (m *MemoryContainer) Delete(_ context.Context, partitionKey, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey{partitionKey, id}
	if _, exists := m.items[k]; !exists {
		return nil
	}
	delete(m.items, k)
	for i, o := range m.order {
		if o == k {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.Deletes++
	return nil
}

func (m *MemoryContainer) prepare(doc Document, id string) ([]byte, error) {
	if m.FailWrite != nil {
		if err := m.FailWrite(doc); err != nil {
			return nil, err
		}
	}
	return marshalWithID(doc, id)
}

// put stores body under k; callers hold m.mu.
func (m *MemoryContainer) put(k memKey, body []byte) {
	if _, exists := m.items[k]; !exists {
		m.order = append(m.order, k)
	}
	m.items[k] = body
}
