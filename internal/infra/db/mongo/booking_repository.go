package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "motorent/internal/domain/booking"
	domainpricing "motorent/internal/domain/pricing"
	"motorent/internal/domain/shared/daterange"
	"motorent/internal/domain/shared/money"
	domainvehicle "motorent/internal/domain/vehicle"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	col := db.Collection("agg_booking")
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "vehicle_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "guest_id", Value: 1}}},
		{Keys: bson.D{{Key: "host_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "payout.status", Value: 1}, {Key: "payout.scheduled_at", Value: 1}}},
	}
	_, _ = col.Indexes().CreateMany(context.Background(), indexes)
	return &BookingRepository{col: col}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainbooking.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Create inserts the booking and then re-checks the overlap condition.
// Without multi-document transactions two racing inserts can both land; the
// deterministic loser, the later (created_at, _id) pair, removes itself and
// reports the conflict.
func (r *BookingRepository) Create(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	doc.Version = 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return err
	}

	conflicts, err := r.overlapping(ctx, b.VehicleID, b.Range, domainbooking.ID(doc.ID))
	if err == nil && len(conflicts) > 0 {
		loser := false
		for _, other := range conflicts {
			if other.CreatedAt.Before(b.CreatedAt) ||
				(other.CreatedAt.Equal(b.CreatedAt) && string(other.ID) < doc.ID) {
				loser = true
				break
			}
		}
		if loser {
			_, _ = r.col.DeleteOne(ctx, bson.M{"_id": doc.ID})
			return &domainbooking.ConflictError{VehicleID: b.VehicleID, Busy: conflicts[0].Range}
		}
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"guest_id": guestID})
}

func (r *BookingRepository) ListByHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"host_id": hostID})
}

func (r *BookingRepository) FindOverlapping(ctx context.Context, vehicleID domainvehicle.ID, dr daterange.DateRange) ([]*domainbooking.Booking, error) {
	return r.overlapping(ctx, vehicleID, dr, "")
}

func (r *BookingRepository) DuePayouts(ctx context.Context, now time.Time) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"status":              string(domainbooking.StatusCompleted),
		"payout.status":       string(domainbooking.PayoutPending),
		"payout.scheduled_at": bson.M{"$lte": msOf(now)},
	}
	return r.find(ctx, filter)
}

func (r *BookingRepository) overlapping(ctx context.Context, vehicleID domainvehicle.ID, dr daterange.DateRange, exclude domainbooking.ID) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"vehicle_id":    string(vehicleID),
		"status":        string(domainbooking.StatusInProgress),
		"range.pickup":  bson.M{"$lt": msOf(dr.Dropoff)},
		"range.dropoff": bson.M{"$gt": msOf(dr.Pickup)},
	}
	if exclude != "" {
		filter["_id"] = bson.M{"$ne": string(exclude)}
	}
	return r.find(ctx, filter)
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type bookingDocument struct {
	ID              string                `bson:"_id"`
	VehicleID       string                `bson:"vehicle_id"`
	GuestID         string                `bson:"guest_id"`
	HostID          string                `bson:"host_id"`
	Range           rangeDocument         `bson:"range"`
	Price           domainpricing.Quote   `bson:"price"`
	PaymentIntentID string                `bson:"payment_intent_id"`
	PaymentStatus   string                `bson:"payment_status"`
	Status          string                `bson:"status"`
	Cancellation    *cancellationDocument `bson:"cancellation,omitempty"`
	Payout          *payoutDocument       `bson:"payout,omitempty"`
	CreatedAt       int64                 `bson:"created_at"`
	UpdatedAt       int64                 `bson:"updated_at"`
	Version         int64                 `bson:"version"`
}

type rangeDocument struct {
	Pickup  int64 `bson:"pickup"`
	Dropoff int64 `bson:"dropoff"`
}

type cancellationDocument struct {
	By                string        `bson:"by"`
	At                int64         `bson:"at"`
	Reason            string        `bson:"reason"`
	Refund            moneyDocument `bson:"refund"`
	RefundPercent     int           `bson:"refund_percent"`
	HostPayout        moneyDocument `bson:"host_payout"`
	PlatformFee       moneyDocument `bson:"platform_fee"`
	RefundProcessedAt int64         `bson:"refund_processed_at"`
	PayoutTransferID  string        `bson:"payout_transfer_id"`
}

type payoutDocument struct {
	Status      string        `bson:"status"`
	ScheduledAt int64         `bson:"scheduled_at"`
	ProcessedAt int64         `bson:"processed_at"`
	TransferID  string        `bson:"transfer_id"`
	Amount      moneyDocument `bson:"amount"`
	PlatformFee moneyDocument `bson:"platform_fee"`
}

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	doc := bookingDocument{
		ID:              string(b.ID),
		VehicleID:       string(b.VehicleID),
		GuestID:         b.GuestID,
		HostID:          b.HostID,
		Range:           rangeDocument{Pickup: msOf(b.Range.Pickup), Dropoff: msOf(b.Range.Dropoff)},
		Price:           b.Price,
		PaymentIntentID: b.PaymentIntentID,
		PaymentStatus:   string(b.PaymentStatus),
		Status:          string(b.Status),
		CreatedAt:       msOf(b.CreatedAt),
		UpdatedAt:       msOf(b.UpdatedAt),
		Version:         b.Version,
	}
	if c := b.Cancellation; c != nil {
		doc.Cancellation = &cancellationDocument{
			By:                string(c.By),
			At:                msOf(c.At),
			Reason:            c.Reason,
			Refund:            moneyDocument{Amount: c.RefundAmount.Amount, Currency: c.RefundAmount.Currency},
			RefundPercent:     c.RefundPercent,
			HostPayout:        moneyDocument{Amount: c.HostPayout.Amount, Currency: c.HostPayout.Currency},
			PlatformFee:       moneyDocument{Amount: c.PlatformFee.Amount, Currency: c.PlatformFee.Currency},
			RefundProcessedAt: msOf(c.RefundProcessedAt),
			PayoutTransferID:  c.PayoutTransferID,
		}
	}
	if p := b.Payout; p != nil {
		doc.Payout = &payoutDocument{
			Status:      string(p.Status),
			ScheduledAt: msOf(p.ScheduledAt),
			ProcessedAt: msOf(p.ProcessedAt),
			TransferID:  p.TransferID,
			Amount:      moneyDocument{Amount: p.Amount.Amount, Currency: p.Amount.Currency},
			PlatformFee: moneyDocument{Amount: p.PlatformFee.Amount, Currency: p.PlatformFee.Currency},
		}
	}
	return doc
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	b := &domainbooking.Booking{
		ID:              domainbooking.ID(d.ID),
		VehicleID:       domainvehicle.ID(d.VehicleID),
		GuestID:         d.GuestID,
		HostID:          d.HostID,
		Range:           daterange.DateRange{Pickup: timeOf(d.Range.Pickup), Dropoff: timeOf(d.Range.Dropoff)},
		Price:           d.Price,
		PaymentIntentID: d.PaymentIntentID,
		PaymentStatus:   domainbooking.PaymentStatus(d.PaymentStatus),
		Status:          domainbooking.Status(d.Status),
		CreatedAt:       timeOf(d.CreatedAt),
		UpdatedAt:       timeOf(d.UpdatedAt),
		Version:         d.Version,
	}
	if c := d.Cancellation; c != nil {
		b.Cancellation = &domainbooking.CancellationRecord{
			By:                domainbooking.Initiator(c.By),
			At:                timeOf(c.At),
			Reason:            c.Reason,
			RefundAmount:      moneyOf(c.Refund),
			RefundPercent:     c.RefundPercent,
			HostPayout:        moneyOf(c.HostPayout),
			PlatformFee:       moneyOf(c.PlatformFee),
			RefundProcessedAt: timeOf(c.RefundProcessedAt),
			PayoutTransferID:  c.PayoutTransferID,
		}
	}
	if p := d.Payout; p != nil {
		b.Payout = &domainbooking.PayoutRecord{
			Status:      domainbooking.PayoutStatus(p.Status),
			ScheduledAt: timeOf(p.ScheduledAt),
			ProcessedAt: timeOf(p.ProcessedAt),
			TransferID:  p.TransferID,
			Amount:      moneyOf(p.Amount),
			PlatformFee: moneyOf(p.PlatformFee),
		}
	}
	return b
}

func moneyOf(d moneyDocument) money.Money {
	return money.Money{Amount: d.Amount, Currency: d.Currency}
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
