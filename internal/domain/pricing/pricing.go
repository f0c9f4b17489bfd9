package pricing

import (
	"errors"

	"motorent/internal/domain/shared/daterange"
	"motorent/internal/domain/shared/money"
)

var (
	ErrRateNotPositive = errors.New("pricing: daily rate must be positive")
	ErrCurrencyUnset   = errors.New("pricing: currency must be defined")
)

const (
	// DefaultPlatformFeePercent is applied when configuration leaves it unset.
	DefaultPlatformFeePercent = 10

	insuranceFeePercent = 5

	// Processor charge model: 2.9% of the base amount plus a fixed 30 cents.
	transactionFeeBasisPoints = 290
	transactionFeeFixedCents  = 30
)

// Config carries the tunable knobs of the calculator. Injected explicitly so
// tests can run with arbitrary fee settings.
type Config struct {
	PlatformFeePercent int
	Currency           string
}

// Quote is the immutable fee breakdown attached to a booking at creation.
// TotalAmount is computed exactly once and never recalculated afterwards.
type Quote struct {
	Days           int         `json:"days" bson:"days"`
	DailyRate      money.Money `json:"daily_rate" bson:"daily_rate"`
	BaseAmount     money.Money `json:"base_amount" bson:"base_amount"`
	PlatformFee    money.Money `json:"platform_fee" bson:"platform_fee"`
	InsuranceFee   money.Money `json:"insurance_fee" bson:"insurance_fee"`
	TransactionFee money.Money `json:"transaction_fee" bson:"transaction_fee"`
	TotalAmount    money.Money `json:"total_amount" bson:"total_amount"`
}

// Calculator derives the chargeable total from the daily rate and duration.
type Calculator struct {
	platformFeePercent int
}

func NewCalculator(cfg Config) Calculator {
	pct := cfg.PlatformFeePercent
	if pct <= 0 {
		pct = DefaultPlatformFeePercent
	}
	return Calculator{platformFeePercent: pct}
}

// PlatformFeePercent exposes the configured platform cut; the payout sweep
// uses the same percentage when splitting a completed booking.
func (c Calculator) PlatformFeePercent() int {
	return c.platformFeePercent
}

// Quote prices a rental interval. All intermediate values stay in integer
// cents; fee multiplications round half-up to a cent.
func (c Calculator) Quote(dailyRate money.Money, dr daterange.DateRange) (Quote, error) {
	if dailyRate.Currency == "" {
		return Quote{}, ErrCurrencyUnset
	}
	if !dailyRate.IsPositive() {
		return Quote{}, ErrRateNotPositive
	}
	days := dr.Days()
	base := dailyRate.Multiply(int64(days))
	platformFee := base.Percent(c.platformFeePercent)
	insuranceFee := base.Percent(insuranceFeePercent)
	transactionFee := base.BasisPoints(transactionFeeBasisPoints)
	transactionFee.Amount += transactionFeeFixedCents

	total := base
	for _, fee := range []money.Money{platformFee, insuranceFee, transactionFee} {
		sum, err := total.Add(fee)
		if err != nil {
			return Quote{}, err
		}
		total = sum
	}
	return Quote{
		Days:           days,
		DailyRate:      dailyRate,
		BaseAmount:     base,
		PlatformFee:    platformFee,
		InsuranceFee:   insuranceFee,
		TransactionFee: transactionFee,
		TotalAmount:    total,
	}, nil
}
