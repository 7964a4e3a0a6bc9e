package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2022, time.February, 10, 15, 4, 5, 0, time.UTC)

func TestHumanDates(t *testing.T) {
	p := HumanDateParser{Location: time.UTC}

	tests := []struct {
		in   string
		want string
	}{
		{"today", "02/10/22"},
		{"Yesterday", "02/09/22"},
		{"2 days ago", "02/08/22"},
		{"1 day ago", "02/09/22"},
		{"a week ago", "02/03/22"},
		{"3 weeks ago", "01/20/22"},
		{"2 months ago", "12/10/21"},
		{"one year ago", "02/10/21"},
		{"March 3, 2020", "03/03/20"},
		{"Mar 3, 2020", "03/03/20"},
		{"2020-03-03", "03/03/20"},
		{"March 2020", "03/01/20"},
		{"  Dec 2019 ", "12/01/19"},
		{"2 hours ago", "02/10/22"},
		{"20 hours ago", "02/09/22"},
		{"an hour ago", "02/10/22"},
		{"30 minutes ago", "02/10/22"},
		{"45 seconds ago", "02/10/22"},
		{"last week", "02/03/22"},
		{"Last month", "01/10/22"},
		{"last year", "02/10/21"},
		{"Sept 3, 2020", "09/03/20"},
		{"Sept 2020", "09/01/20"},
		{"September 3, 2020", "09/03/20"},
	}
	for _, tt := range tests {
		got, err := Date(p, tt.in, now)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}

func TestHumanDateFailures(t *testing.T) {
	p := HumanDateParser{}
	for _, in := range []string{"", "   ", "not a date at all", "12.", "0000", "3/4"} {
		_, err := Date(p, in, now)
		require.ErrorIs(t, err, ErrUnparseableDate, in)
	}
}

func TestHumanDateUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	late := time.Date(2022, time.February, 10, 20, 0, 0, 0, time.UTC) // 06:00 next day in UTC+10

	got, err := Date(HumanDateParser{Location: loc}, "today", late)
	require.NoError(t, err)
	require.Equal(t, "02/11/22", got)
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "Great food and service", CleanText("  Great   food\n\tand service \u0000"))
	require.Equal(t, "", CleanText(" \n "))
	require.Equal(t, "Caf\u00e9 do Porto", CleanText("Cafe\u0301 do Porto"))
}

func TestStripQuote(t *testing.T) {
	require.Equal(t, "Best fish in town", StripQuote("\"Best fish in town\""))
	require.Equal(t, "Best fish in town", StripQuote("\n\"Best fish in town\"\n"))
}

func TestStripPrefix(t *testing.T) {
	require.Equal(t, "March 3, 2020", StripPrefix(" Reviewed March 3, 2020 \n", "Reviewed "))
	require.Equal(t, "2 days ago", StripPrefix("2 days ago", "Reviewed "))
}
