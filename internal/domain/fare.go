package domain

// DistanceUnit selects how the per-distance rate is applied.
type DistanceUnit string

const (
	DistanceUnitKm     DistanceUnit = "km"
	DistanceUnitMeters DistanceUnit = "m"
)

// FareSettings is the process-wide pricing configuration. It is a
// singleton maintained by admin tooling and read on every quote.
type FareSettings struct {
	BaseFare        float64
	PricePerKm      float64
	PricePerMinute  float64
	MinimumFare     float64
	DistanceUnit    DistanceUnit
	SurgeEnabled    bool
	SurgeMultiplier float64
}
