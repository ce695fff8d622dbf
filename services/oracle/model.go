package oracle

import "time"

// OracleType tags the price-feed kind an observation came from. Custody
// tokens carry the tag so the converter can refuse observations produced
// by a different feed than the one registered for the token.
type OracleType string

const (
	OracleTypeUnsupported OracleType = "unsupported"
	OracleTypePyth        OracleType = "pyth"
	OracleTypeChainlink   OracleType = "chainlink"
)

// Observation is a single price-feed reading.
type Observation struct {
	OracleID   string     `json:"oracle_id"`
	OracleType OracleType `json:"oracle_type"`

	// Price is the USD price of one whole token.
	Price float64 `json:"price"`
	// Confidence is the feed's reported absolute error band around Price.
	Confidence float64 `json:"confidence"`
	// ObservedAt is the unix time the feed produced this reading.
	ObservedAt int64 `json:"observed_at"`
}

// Age returns how old the observation is relative to now.
func (o Observation) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(o.ObservedAt, 0))
}

// PriceRecord is the persisted form of an observation.
type PriceRecord struct {
	OracleID   string    `gorm:"column:oracle_id;primaryKey"`
	OracleType string    `gorm:"column:oracle_type"`
	Price      float64   `gorm:"column:price"`
	Confidence float64   `gorm:"column:confidence"`
	ObservedAt int64     `gorm:"column:observed_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (PriceRecord) TableName() string {
	return "oracle_prices"
}

func (r *PriceRecord) Observation() Observation {
	return Observation{
		OracleID:   r.OracleID,
		OracleType: OracleType(r.OracleType),
		Price:      r.Price,
		Confidence: r.Confidence,
		ObservedAt: r.ObservedAt,
	}
}
