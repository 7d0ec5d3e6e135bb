package model

// DefaultPriceUnit is the unit attached to spot price feeds when none is given.
const DefaultPriceUnit = "EUR/MWh"

// PricePoint is a single spot price observation.
type PricePoint struct {
	Timestamp string  `json:"date"`
	Price     float64 `json:"value"`
	Unit      string  `json:"-"`
}

// PriceSeries is the JSON shape of a prepared price feed.
type PriceSeries struct {
	Unit string       `json:"unit"`
	Data []PricePoint `json:"data"`
}

// NewPriceSeries wraps points with the unit of the first point, falling back
// to DefaultPriceUnit for an empty series.
func NewPriceSeries(points []PricePoint) PriceSeries {
	unit := DefaultPriceUnit
	if len(points) > 0 && points[0].Unit != "" {
		unit = points[0].Unit
	}
	if points == nil {
		points = []PricePoint{}
	}
	return PriceSeries{Unit: unit, Data: points}
}
