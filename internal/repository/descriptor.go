package repository

import (
	"fmt"

	"github.com/hospitalzapata/wardsync/internal/models"
)

// Descriptor is the route and policy table for one entity type.
type Descriptor struct {
	Type models.EntityType

	// Path is the collection route used for mutations, e.g. "/rooms".
	// Item routes append "/{id}".
	Path string

	// ListPath is the read route. It differs from Path when the API
	// exposes a dedicated status listing.
	ListPath string

	// OnlineOnlyDelete marks deletes that must not be queued because
	// they have server-side effects that cannot be replayed safely.
	OnlineOnlyDelete bool

	// OnlineOnlyUpdate marks updates with the same restriction.
	OnlineOnlyUpdate bool
}

// ItemPath returns the route for a single document.
func (d Descriptor) ItemPath(id string) string {
	return d.Path + "/" + id
}

// Registry maps entity types to their descriptors.
type Registry struct {
	descriptors map[models.EntityType]Descriptor
}

// DefaultRegistry returns the ward API route table.
func DefaultRegistry() *Registry {
	r := &Registry{descriptors: make(map[models.EntityType]Descriptor)}

	for _, d := range []Descriptor{
		{
			Type:     models.EntityBeds,
			Path:     "/beds",
			ListPath: "/beds/status",
			// Bed state is coupled to admissions server-side. A queued
			// delete or update replayed after the server reassigned the
			// bed would clobber an admission, so both go online-only.
			OnlineOnlyDelete: true,
			OnlineOnlyUpdate: true,
		},
		{
			Type:     models.EntityRooms,
			Path:     "/rooms",
			ListPath: "/rooms",
		},
		{
			Type:     models.EntityIslands,
			Path:     "/islands",
			ListPath: "/islands",
		},
		{
			Type:     models.EntityNurses,
			Path:     "/nurses",
			ListPath: "/nurses",
		},
		{
			Type:     models.EntityPatients,
			Path:     "/patients",
			ListPath: "/patients",
			// Deleting a patient cascades into their admission.
			OnlineOnlyDelete: true,
		},
		{
			Type: models.EntityAlerts,
			Path: "/help/trigger",
			// Alerts have no list endpoint; the queue is the only
			// record of a pending one.
			ListPath: "",
		},
	} {
		r.descriptors[d.Type] = d
	}

	return r
}

// Lookup returns the descriptor for an entity type.
func (r *Registry) Lookup(entity models.EntityType) (Descriptor, error) {
	d, ok := r.descriptors[entity]
	if !ok {
		return Descriptor{}, fmt.Errorf("no descriptor for entity %q", entity)
	}
	return d, nil
}

// Types returns every registered entity type.
func (r *Registry) Types() []models.EntityType {
	var out []models.EntityType
	for _, t := range models.AllEntityTypes() {
		if _, ok := r.descriptors[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
