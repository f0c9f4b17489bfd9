package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainvehicle "motorent/internal/domain/vehicle"
)

type VehicleRepository struct {
	col *mongo.Collection
}

func NewVehicleRepository(db *mongo.Database) *VehicleRepository {
	col := db.Collection("agg_vehicle")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}, {Key: "deactivated_until", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &VehicleRepository{col: col}
}

func (r *VehicleRepository) ByID(ctx context.Context, id domainvehicle.ID) (*domainvehicle.Vehicle, error) {
	var doc vehicleDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainvehicle.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *VehicleRepository) Save(ctx context.Context, v *domainvehicle.Vehicle) error {
	doc := newVehicleDocument(v)
	doc.Version = v.Version + 1
	filter := bson.M{"_id": doc.ID, "version": v.Version}
	opts := options.Update().SetUpsert(v.Version == 0)
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, opts)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainvehicle.ErrNotFound
	}
	v.Version = doc.Version
	return nil
}

// ReactivateDue flips every deactivated vehicle whose window has passed back
// to active in a single update.
func (r *VehicleRepository) ReactivateDue(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"status":            string(domainvehicle.StatusDeactivated),
		"deactivated_until": bson.M{"$gt": int64(0), "$lte": msOf(now)},
	}
	update := bson.M{
		"$set": bson.M{"status": string(domainvehicle.StatusActive), "deactivated_until": int64(0), "updated_at": msOf(now)},
		"$inc": bson.M{"version": 1},
	}
	res, err := r.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

type vehicleDocument struct {
	ID               string `bson:"_id"`
	HostID           string `bson:"host_id"`
	Name             string `bson:"name"`
	Model            string `bson:"model"`
	Type             string `bson:"type"`
	DailyRateCents   int64  `bson:"daily_rate_cents"`
	Status           string `bson:"status"`
	DeactivatedUntil int64  `bson:"deactivated_until"`
	CreatedAt        int64  `bson:"created_at"`
	UpdatedAt        int64  `bson:"updated_at"`
	Version          int64  `bson:"version"`
}

func newVehicleDocument(v *domainvehicle.Vehicle) vehicleDocument {
	doc := vehicleDocument{
		ID:             string(v.ID),
		HostID:         v.HostID,
		Name:           v.Name,
		Model:          v.Model,
		Type:           v.Type,
		DailyRateCents: v.DailyRateCents,
		Status:         string(v.Status),
		CreatedAt:      msOf(v.CreatedAt),
		UpdatedAt:      msOf(v.UpdatedAt),
		Version:        v.Version,
	}
	if v.DeactivatedUntil != nil {
		doc.DeactivatedUntil = msOf(*v.DeactivatedUntil)
	}
	return doc
}

func (d vehicleDocument) toAggregate() *domainvehicle.Vehicle {
	v := &domainvehicle.Vehicle{
		ID:             domainvehicle.ID(d.ID),
		HostID:         d.HostID,
		Name:           d.Name,
		Model:          d.Model,
		Type:           d.Type,
		DailyRateCents: d.DailyRateCents,
		Status:         domainvehicle.Status(d.Status),
		CreatedAt:      timeOf(d.CreatedAt),
		UpdatedAt:      timeOf(d.UpdatedAt),
		Version:        d.Version,
	}
	if d.DeactivatedUntil != 0 {
		until := timeOf(d.DeactivatedUntil)
		v.DeactivatedUntil = &until
	}
	return v
}

var _ domainvehicle.Repository = (*VehicleRepository)(nil)
