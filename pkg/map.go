package pkg

type Map[K comparable, V any] map[K]V

func (m Map[K, V]) Get(key K) V {
	return m[key]
}

func (m Map[K, V]) Set(key K, value V) {
	m[key] = value
}

func (m Map[K, V]) Has(key K) bool {
	_, ok := m[key]
	return ok
}

func (m Map[K, V]) Delete(key K) {
	delete(m, key)
}

func (m Map[K, V]) Keys() []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// InsertSortMap is a map that remembers the order keys were first inserted in.
type InsertSortMap[K comparable, V any] struct {
	Idx    Map[K, V]
	Sorted []K
}

func NewInsertSortMap[K comparable, V any]() *InsertSortMap[K, V] {
	return &InsertSortMap[K, V]{Idx: Map[K, V]{}, Sorted: []K{}}
}

func (m *InsertSortMap[K, V]) Len() int { return len(m.Sorted) }

func (m *InsertSortMap[K, V]) Get(key K) V { return m.Idx.Get(key) }

func (m *InsertSortMap[K, V]) Has(key K) bool { return m.Idx.Has(key) }

// Push appends a new key. Pushing a key that is already present is a no-op
// and reports false.
func (m *InsertSortMap[K, V]) Push(key K, value V) bool {
	if m.Idx.Has(key) {
		return false
	}
	m.Idx.Set(key, value)
	m.Sorted = append(m.Sorted, key)
	return true
}

// Put replaces the value of an existing key without moving it,
// or appends the key when it is new.
func (m *InsertSortMap[K, V]) Put(key K, value V) {
	if m.Idx.Has(key) {
		m.Idx.Set(key, value)
		return
	}
	m.Push(key, value)
}

func (m *InsertSortMap[K, V]) Delete(key K) {
	m.Idx.Delete(key)
	for i, k := range m.Sorted {
		if k == key {
			m.Sorted = append(m.Sorted[:i], m.Sorted[i+1:]...)
			break
		}
	}
}

// Values returns the values in insertion order.
func (m *InsertSortMap[K, V]) Values() []V {
	values := make([]V, 0, len(m.Sorted))
	for _, k := range m.Sorted {
		values = append(values, m.Idx.Get(k))
	}
	return values
}

func (m *InsertSortMap[K, V]) Clone() *InsertSortMap[K, V] {
	c := &InsertSortMap[K, V]{Idx: make(Map[K, V], len(m.Idx)), Sorted: make([]K, len(m.Sorted))}
	copy(c.Sorted, m.Sorted)
	for k, v := range m.Idx {
		c.Idx[k] = v
	}
	return c
}
