package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainvehicle "motorent/internal/domain/vehicle"
)

func seedVehicle(t *testing.T, repo *VehicleRepository, id domainvehicle.ID, status domainvehicle.Status, until *time.Time) {
	t.Helper()
	require.NoError(t, repo.Save(context.Background(), &domainvehicle.Vehicle{
		ID:               id,
		HostID:           "host-1",
		Name:             "Scooter " + string(id),
		DailyRateCents:   8000,
		Status:           status,
		DeactivatedUntil: until,
	}))
}

func TestReactivateDue(t *testing.T) {
	repo := NewVehicleRepository()
	ctx := context.Background()
	now := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	seedVehicle(t, repo, "veh-due", domainvehicle.StatusDeactivated, &past)
	seedVehicle(t, repo, "veh-later", domainvehicle.StatusDeactivated, &future)
	seedVehicle(t, repo, "veh-manual", domainvehicle.StatusDeactivated, nil)
	seedVehicle(t, repo, "veh-active", domainvehicle.StatusActive, nil)

	count, err := repo.ReactivateDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	due, err := repo.ByID(ctx, "veh-due")
	require.NoError(t, err)
	assert.Equal(t, domainvehicle.StatusActive, due.Status)
	assert.Nil(t, due.DeactivatedUntil)

	later, err := repo.ByID(ctx, "veh-later")
	require.NoError(t, err)
	assert.Equal(t, domainvehicle.StatusDeactivated, later.Status)

	// Vehicles deactivated without an end date stay down until a human acts.
	manual, err := repo.ByID(ctx, "veh-manual")
	require.NoError(t, err)
	assert.Equal(t, domainvehicle.StatusDeactivated, manual.Status)

	// A second sweep finds nothing left to do.
	count, err = repo.ReactivateDue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestVehicleSaveBumpsVersion(t *testing.T) {
	repo := NewVehicleRepository()
	ctx := context.Background()

	v := &domainvehicle.Vehicle{ID: "veh-1", HostID: "host-1", DailyRateCents: 8000, Status: domainvehicle.StatusActive}
	require.NoError(t, repo.Save(ctx, v))
	assert.Equal(t, int64(1), v.Version)

	require.NoError(t, repo.Save(ctx, v))
	assert.Equal(t, int64(2), v.Version)

	_, err := repo.ByID(ctx, "missing")
	assert.ErrorIs(t, err, domainvehicle.ErrNotFound)
}
