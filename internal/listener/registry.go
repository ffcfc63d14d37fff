package listener

import (
	"slices"
	"sort"

	"github.com/roach88/umbra/internal/variable"
)

// Registry indexes notifiables by the entity type and the variable they are
// sourced on.
type Registry struct {
	byEntity   map[*variable.EntityDescriptor][]Notifiable
	byVariable map[*variable.Descriptor][]Notifiable
	all        []Notifiable
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byEntity:   make(map[*variable.EntityDescriptor][]Notifiable),
		byVariable: make(map[*variable.Descriptor][]Notifiable),
	}
}

// Register records n against every source variable and against the entity
// type owning each source. A notifiable appears at most once per list.
func (r *Registry) Register(sources []*variable.Descriptor, n Notifiable) {
	for _, src := range sources {
		if !slices.Contains(r.byVariable[src], n) {
			r.byVariable[src] = append(r.byVariable[src], n)
		}
		e := src.Entity()
		if !slices.Contains(r.byEntity[e], n) {
			r.byEntity[e] = append(r.byEntity[e], n)
		}
	}
	r.all = append(r.all, n)
}

// ForEntity returns the notifiables sourced on any variable of e. The result
// is never nil.
func (r *Registry) ForEntity(e *variable.EntityDescriptor) []Notifiable {
	if ns := r.byEntity[e]; ns != nil {
		return ns
	}
	return []Notifiable{}
}

// ForVariable returns the notifiables sourced on v. The result is never nil.
func (r *Registry) ForVariable(v *variable.Descriptor) []Notifiable {
	if ns := r.byVariable[v]; ns != nil {
		return ns
	}
	return []Notifiable{}
}

// All returns every notifiable, in global order once Sort has been called.
func (r *Registry) All() []Notifiable { return r.all }

// Len returns the number of registered notifiables.
func (r *Registry) Len() int { return len(r.all) }

// Sort stable-sorts every index by ascending global order.
func (r *Registry) Sort() {
	sortNotifiables(r.all)
	for _, ns := range r.byEntity {
		sortNotifiables(ns)
	}
	for _, ns := range r.byVariable {
		sortNotifiables(ns)
	}
}

func sortNotifiables(ns []Notifiable) {
	sort.SliceStable(ns, func(i, j int) bool {
		return ns[i].GlobalOrder() < ns[j].GlobalOrder()
	})
}
