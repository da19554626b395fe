package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfDay(t *testing.T) {
	at := time.Date(2025, time.March, 10, 17, 45, 12, 500, time.UTC)
	assert.Equal(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), StartOfDay(at))
}

func TestLocalHour(t *testing.T) {
	at := time.Date(2025, time.March, 10, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, 20, LocalHour(at, "UTC"))
	assert.Equal(t, 1, LocalHour(at, "Asia/Almaty")) // UTC+5, next calendar day
}

func TestLocalHour_UnknownZoneFallsBackToUTC(t *testing.T) {
	at := time.Date(2025, time.March, 10, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, 20, LocalHour(at, "Not/AZone"))
}
