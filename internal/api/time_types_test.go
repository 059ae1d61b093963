package api

import (
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlexTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"empty", "", time.Time{}, false},
		{"rfc3339", "2024-01-15T10:30:00Z", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), false},
		{"rfc3339 nano", "2024-01-15T10:30:00.5Z", time.Date(2024, 1, 15, 10, 30, 0, 500000000, time.UTC), false},
		{"date only", "2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"epoch millis", "1705314600000", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), false},
		{"garbage", "next tuesday", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFlexTime(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestFlexTime_JSON(t *testing.T) {
	var ft FlexTime
	require.NoError(t, sonic.Unmarshal([]byte(`"2024-01-15"`), &ft))
	assert.Equal(t, 2024, ft.Year())

	out, err := sonic.Marshal(ft)
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-01-15T00:00:00Z"`, string(out))

	out, err = sonic.Marshal(FlexTime{})
	require.NoError(t, err)
	assert.JSONEq(t, `""`, string(out))

	assert.Error(t, sonic.Unmarshal([]byte(`1705314600000`), &ft), "numbers must be quoted")
}
