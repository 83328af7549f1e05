package speedtest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/netzbremse/nb-speedtest/pkg/speedtest"
)

func TestFileName(t *testing.T) {
	testCases := map[string]struct {
		given  time.Time
		expect string
	}{
		"plain": {
			given:  time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC),
			expect: "speedtest-2024-01-15T10-30-00-000Z.json",
		},
		"millis": {
			given:  time.Date(2024, time.January, 15, 10, 30, 0, 123*int(time.Millisecond), time.UTC),
			expect: "speedtest-2024-01-15T10-30-00-123Z.json",
		},
		"non-utc-normalized": {
			given:  time.Date(2024, time.June, 1, 2, 0, 0, 0, time.FixedZone("CEST", 2*60*60)),
			expect: "speedtest-2024-06-01T00-00-00-000Z.json",
		},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			require.Equal(t, test.expect, speedtest.FileName(test.given))
		})
	}
}

func TestTimeFromFileName(t *testing.T) {
	testCases := map[string]struct {
		given       string
		expect      time.Time
		expectError bool
	}{
		"round-trip": {
			given:  "speedtest-2024-01-15T10-30-00-123Z.json",
			expect: time.Date(2024, time.January, 15, 10, 30, 0, 123*int(time.Millisecond), time.UTC),
		},
		"wrong-prefix": {
			given:       "latency-2024-01-15T10-30-00-123Z.json",
			expectError: true,
		},
		"wrong-suffix": {
			given:       "speedtest-2024-01-15T10-30-00-123Z.csv",
			expectError: true,
		},
		"no-timezone-marker": {
			given:       "speedtest-2024-01-15T10-30-00-123.json",
			expectError: true,
		},
		"missing-millis": {
			given:       "speedtest-2024-01-15T10-30-00Z.json",
			expectError: true,
		},
		"not-a-timestamp": {
			given:       "speedtest-aaaa-bb-ccTdd-ee-ff-gggZ.json",
			expectError: true,
		},
		"empty": {
			given:       "",
			expectError: true,
		},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			got, err := speedtest.TimeFromFileName(test.given)
			if test.expectError {
				require.ErrorIs(t, err, speedtest.ErrMalformedFileName)
			} else {
				require.NoError(t, err)
				require.True(t, test.expect.Equal(got), "expected %v, got %v", test.expect, got)
			}
		})
	}
}

func TestFileName_RoundTrip(t *testing.T) {
	stamp := time.Date(2026, time.August, 29, 23, 59, 59, 999*int(time.Millisecond), time.UTC)

	got, err := speedtest.TimeFromFileName(speedtest.FileName(stamp))
	require.NoError(t, err)
	require.True(t, stamp.Equal(got))
}
