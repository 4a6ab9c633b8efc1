package mapper

import (
	"fmt"
	"sort"
	"sync"
)

// Registry таблица соответствий коллекция ↔ тип записи ↔ тип модели
type Registry struct {
	mu           sync.RWMutex
	byCollection map[string]RecordMapper
	byRecordType map[string]RecordMapper
	byModelType  map[string]RecordMapper
	references   map[string]ReferenceMapper
}

func NewRegistry() *Registry {
	return &Registry{
		byCollection: make(map[string]RecordMapper),
		byRecordType: make(map[string]RecordMapper),
		byModelType:  make(map[string]RecordMapper),
		references:   make(map[string]ReferenceMapper),
	}
}

// Register добавляет маппер; повторная регистрация коллекции или типа модели запрещена
func (r *Registry) Register(m RecordMapper) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byCollection[m.Collection()]; ok {
		return fmt.Errorf("%w: collection %s", ErrDuplicateMapper, m.Collection())
	}
	if _, ok := r.byModelType[m.ModelType()]; ok {
		return fmt.Errorf("%w: model type %s", ErrDuplicateMapper, m.ModelType())
	}

	r.byCollection[m.Collection()] = m
	r.byModelType[m.ModelType()] = m
	r.byRecordType[recordType(m)] = m
	return nil
}

// RegisterReference добавляет маппер записей-ссылок
func (r *Registry) RegisterReference(m ReferenceMapper) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.references[m.ID()]; ok {
		return fmt.Errorf("%w: reference %s", ErrDuplicateMapper, m.ID())
	}
	r.references[m.ID()] = m
	return nil
}

func (r *Registry) ForCollection(collection string) (RecordMapper, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byCollection[collection]
	return m, ok
}

func (r *Registry) ForRecordType(typ string) (RecordMapper, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byRecordType[typ]
	return m, ok
}

func (r *Registry) ForModelType(typ string) (RecordMapper, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byModelType[typ]
	return m, ok
}

func (r *Registry) Reference(id string) (ReferenceMapper, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.references[id]
	return m, ok
}

// Collections возвращает зарегистрированные коллекции в отсортированном порядке
func (r *Registry) Collections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byCollection))
	for c := range r.byCollection {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func recordType(m RecordMapper) string {
	if rt, ok := m.(RecordTyped); ok && rt.RecordType() != "" {
		return rt.RecordType()
	}
	return m.Collection()
}
