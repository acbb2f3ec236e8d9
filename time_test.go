package accounts_test

import (
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsWithinThresholdPeriod(t *testing.T) {
	tests := []struct {
		name    string
		t       time.Time
		pattern string
		want    bool
		wantErr bool
	}{
		{
			name:    "within the window",
			t:       time.Now().Add(-30 * time.Minute),
			pattern: "1h",
			want:    true,
		},
		{
			name:    "outside the window",
			t:       time.Now().Add(-2 * time.Hour),
			pattern: "1h",
			want:    false,
		},
		{
			name:    "future times are always within",
			t:       time.Now().Add(time.Hour),
			pattern: "1h",
			want:    true,
		},
		{
			name:    "invalid pattern",
			t:       time.Now(),
			pattern: "one hour",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := accounts.IsWithinThresholdPeriod(tt.t, tt.pattern)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsOutsideThresholdPeriod(t *testing.T) {
	outside, err := accounts.IsOutsideThresholdPeriod(time.Now().Add(-48*time.Hour), "24h")
	require.NoError(t, err)
	assert.True(t, outside)

	outside, err = accounts.IsOutsideThresholdPeriod(time.Now().Add(-time.Hour), "24h")
	require.NoError(t, err)
	assert.False(t, outside)

	_, err = accounts.IsOutsideThresholdPeriod(time.Now(), "bogus")
	assert.Error(t, err)
}
