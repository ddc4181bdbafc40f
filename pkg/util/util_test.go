package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "30m", want: 30 * time.Minute},
		{in: "2d", want: 48 * time.Hour},
		{in: "15", want: 15 * time.Second},
		{in: "xd", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestSetHelpers(t *testing.T) {
	a := []int64{1, 2, 3}
	b := []int64{3, 4}

	assert.Equal(t, []int64{1, 2}, Difference(a, b))
	assert.Equal(t, []int64{4}, Difference(b, a))
	assert.Equal(t, []int64{1, 2, 3, 4}, Union(a, b))
	assert.True(t, InSlice(a, 2))
	assert.False(t, InSlice(b, 2))
}
