package utils

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDistanceMiles(t *testing.T) {
	// Miami to Fort Lauderdale is roughly 25 miles
	d := DistanceMiles(25.7617, -80.1918, 26.1224, -80.1373)
	assert.InDelta(t, 25, d, 1.5)
	assert.InDelta(t, 0, DistanceMiles(25.0, -80.0, 25.0, -80.0), 0.0001)
}

func TestBoundsAroundContainsRadius(t *testing.T) {
	b := BoundsAround(25.7617, -80.1918, 10)
	assert.Less(t, b.MinLat, 25.7617)
	assert.Greater(t, b.MaxLat, 25.7617)
	assert.InDelta(t, 10.0/69.0, b.MaxLat-25.7617, 0.0001)
	// longitude degrees are shorter away from the equator
	assert.Greater(t, b.MaxLng-(-80.1918), b.MaxLat-25.7617)
}

func TestTimeZoneFor(t *testing.T) {
	assert.Equal(t, "America/New_York", TimeZoneFor(25.7617, -80.1918))
	assert.Equal(t, "America/Los_Angeles", TimeZoneFor(34.0522, -118.2437))
}

func TestFormatAddress(t *testing.T) {
	assert.Equal(t, "1 Ocean Dr, Miami, FL 33139", FormatAddress(" 1 Ocean Dr", "Miami", "FL", "33139"))
	assert.Equal(t, "1 Ocean Dr, Miami", FormatAddress("1 Ocean Dr", "Miami", "", ""))
}

func TestNextBusinessDay(t *testing.T) {
	// Saturday 2025-07-05 rolls to Monday 2025-07-07
	assert.Equal(t, day("2025-07-07"), NextBusinessDay(day("2025-07-05")))
	// Christmas 2025 is a Thursday
	assert.Equal(t, day("2025-12-26"), NextBusinessDay(day("2025-12-25")))
	assert.Equal(t, day("2025-07-08"), NextBusinessDay(day("2025-07-08")))
}

func TestNextRentDue(t *testing.T) {
	start := day("2025-01-15")
	end := day("2026-01-14")

	due, nominal, ok := NextRentDue(day("2025-03-05"), start, end, 1)
	require.True(t, ok)
	assert.Equal(t, day("2025-04-01"), due)
	assert.Equal(t, "2025-04", RentPeriod(nominal))

	// 2025-03-01 is a Saturday; the rolled due date is still ahead on the 2nd
	due, nominal, ok = NextRentDue(day("2025-03-02"), start, end, 1)
	require.True(t, ok)
	assert.Equal(t, day("2025-03-03"), due)
	assert.Equal(t, "2025-03", RentPeriod(nominal))

	// 2025-06-01 is a Sunday, so the due date moves to Monday
	due, nominal, ok = NextRentDue(day("2025-05-20"), start, end, 1)
	require.True(t, ok)
	assert.Equal(t, day("2025-06-02"), due)
	assert.Equal(t, "2025-06", RentPeriod(nominal))

	// before the lease starts the first due date is the first one after start
	due, _, ok = NextRentDue(day("2024-12-01"), start, end, 1)
	require.True(t, ok)
	assert.Equal(t, day("2025-02-03"), due)

	_, _, ok = NextRentDue(day("2026-01-10"), start, end, 20)
	assert.False(t, ok)
}

func TestMetricsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ApplicationTransitions.WithLabelValues("approved").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ApplicationTransitions.WithLabelValues("approved")))
}
