package fitting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, time.March, 12, 15, 30, 0, 0, time.UTC) // Wednesday

func TestParseDate(t *testing.T) {
	d, err := ParseDate("14.03.2025", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("12.03.25", now)
	require.NoError(t, err)
	require.Equal(t, 12, d.Day())

	_, err = ParseDate("11.03.2025", now)
	require.ErrorIs(t, err, ErrDatePast)

	_, err = ParseDate("2025-03-14", now)
	require.ErrorIs(t, err, ErrDateFormat)
}

func TestWorkingDaysUntil(t *testing.T) {
	monday := time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC)
	if got := WorkingDaysUntil(monday, now); got != 3 {
		t.Errorf("WorkingDaysUntil = %d, want 3", got)
	}
}

func TestBookingValidate(t *testing.T) {
	b := NewBooking()
	b.FirstName, b.LastName, b.Email = "Ada", "Lovelace", "ada@example.com"
	b.Date = time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC)
	require.Error(t, b.Validate())

	b.Time = "10:00 AM"
	require.NoError(t, b.Validate())

	b.Time = "01:00 PM"
	require.Error(t, b.Validate())

	b.Time = "10:00 AM"
	b.Type = "tea_ceremony"
	require.Error(t, b.Validate())
}

func TestBookingRequest(t *testing.T) {
	b := Booking{
		FirstName: " Ada ", LastName: "Lovelace", Email: "ada@example.com",
		Date: time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC),
		Time: "02:00 PM", Type: FabricSelection,
	}
	req := b.Request()
	require.Equal(t, "Ada", req.CustomerInfo.FirstName)
	require.Nil(t, req.CustomerInfo.Phone)
	require.Nil(t, req.Notes)
	require.Equal(t, "2025-03-14", req.PreferredDate)
	require.Equal(t, "fabric_selection", req.FittingType)
}

func TestParseType(t *testing.T) {
	typ, ok := ParseType("Styling advice")
	require.True(t, ok)
	require.Equal(t, StylingAdvice, typ)

	_, ok = ParseType("haircut")
	require.False(t, ok)
}
