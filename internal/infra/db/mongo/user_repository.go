package mongo

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainuser "motorent/internal/domain/user"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	col := db.Collection("agg_user")
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "connected_account_id", Value: 1}},
			Options: options.Index().SetPartialFilterExpression(bson.M{"connected_account_id": bson.M{"$gt": ""}})},
	}
	_, _ = col.Indexes().CreateMany(context.Background(), indexes)
	return &UserRepository{col: col}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *UserRepository) ByConnectedAccount(ctx context.Context, accountID string) (*domainuser.User, error) {
	return r.findOne(ctx, bson.M{"connected_account_id": accountID})
}

func (r *UserRepository) Save(ctx context.Context, u *domainuser.User) error {
	doc := newUserDocument(u)
	doc.Version = u.Version + 1
	filter := bson.M{"_id": doc.ID, "version": u.Version}
	opts := options.Update().SetUpsert(u.Version == 0)
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainuser.ErrEmailAlreadyUsed
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainuser.ErrNotFound
	}
	u.Version = doc.Version
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domainuser.User, error) {
	var doc userDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainuser.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

type userDocument struct {
	ID           string `bson:"_id"`
	Email        string `bson:"email"`
	Name         string `bson:"name"`
	PasswordHash string `bson:"password_hash"`
	Role         string `bson:"role"`

	ConnectedAccountID string `bson:"connected_account_id,omitempty"`
	ExternalAccountID  string `bson:"external_account_id,omitempty"`
	PayoutsEnabled     bool   `bson:"payouts_enabled"`

	TotalRevenueCents   int64 `bson:"total_revenue_cents"`
	PendingPenaltyCents int64 `bson:"pending_penalty_cents"`
	TotalCancellations  int   `bson:"total_cancellations"`
	TotalCompletedTrips int   `bson:"total_completed_trips"`

	CreatedAt int64 `bson:"created_at"`
	UpdatedAt int64 `bson:"updated_at"`
	Version   int64 `bson:"version"`
}

func newUserDocument(u *domainuser.User) userDocument {
	return userDocument{
		ID:                  string(u.ID),
		Email:               strings.ToLower(strings.TrimSpace(u.Email)),
		Name:                u.Name,
		PasswordHash:        u.PasswordHash,
		Role:                string(u.Role),
		ConnectedAccountID:  u.ConnectedAccountID,
		ExternalAccountID:   u.ExternalAccountID,
		PayoutsEnabled:      u.PayoutsEnabled,
		TotalRevenueCents:   u.TotalRevenueCents,
		PendingPenaltyCents: u.PendingPenaltyCents,
		TotalCancellations:  u.TotalCancellations,
		TotalCompletedTrips: u.TotalCompletedTrips,
		CreatedAt:           msOf(u.CreatedAt),
		UpdatedAt:           msOf(u.UpdatedAt),
		Version:             u.Version,
	}
}

func (d userDocument) toAggregate() *domainuser.User {
	return &domainuser.User{
		ID:                  domainuser.ID(d.ID),
		Email:               d.Email,
		Name:                d.Name,
		PasswordHash:        d.PasswordHash,
		Role:                domainuser.Role(d.Role),
		ConnectedAccountID:  d.ConnectedAccountID,
		ExternalAccountID:   d.ExternalAccountID,
		PayoutsEnabled:      d.PayoutsEnabled,
		TotalRevenueCents:   d.TotalRevenueCents,
		PendingPenaltyCents: d.PendingPenaltyCents,
		TotalCancellations:  d.TotalCancellations,
		TotalCompletedTrips: d.TotalCompletedTrips,
		CreatedAt:           timeOf(d.CreatedAt),
		UpdatedAt:           timeOf(d.UpdatedAt),
		Version:             d.Version,
	}
}

var _ domainuser.Repository = (*UserRepository)(nil)
