package memory

import (
	"context"
	"sync"
	"time"

	domainvehicle "motorent/internal/domain/vehicle"
)

// VehicleRepository stores vehicles in memory. Not suitable for production.
type VehicleRepository struct {
	mu   sync.RWMutex
	byID map[domainvehicle.ID]*domainvehicle.Vehicle
}

func NewVehicleRepository() *VehicleRepository {
	return &VehicleRepository{byID: make(map[domainvehicle.ID]*domainvehicle.Vehicle)}
}

func (r *VehicleRepository) ByID(ctx context.Context, id domainvehicle.ID) (*domainvehicle.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.byID[id]; ok {
		return cloneVehicle(v), nil
	}
	return nil, domainvehicle.ErrNotFound
}

func (r *VehicleRepository) Save(ctx context.Context, v *domainvehicle.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := cloneVehicle(v)
	stored.Version = v.Version + 1
	r.byID[v.ID] = stored
	v.Version = stored.Version
	return nil
}

func (r *VehicleRepository) ReactivateDue(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, v := range r.byID {
		if v.Status != domainvehicle.StatusDeactivated || v.DeactivatedUntil == nil {
			continue
		}
		if v.DeactivatedUntil.After(now) {
			continue
		}
		v.Reactivate(now)
		v.Version++
		count++
	}
	return count, nil
}

func cloneVehicle(v *domainvehicle.Vehicle) *domainvehicle.Vehicle {
	if v == nil {
		return nil
	}
	clone := *v
	if v.DeactivatedUntil != nil {
		until := *v.DeactivatedUntil
		clone.DeactivatedUntil = &until
	}
	return &clone
}

var _ domainvehicle.Repository = (*VehicleRepository)(nil)
