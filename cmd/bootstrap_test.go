package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNewBootstrapLogger_Level(t *testing.T) {
	tests := []struct {
		name  string
		level string
		debug bool
		want  zapcore.Level
	}{
		{name: "default", want: zapcore.InfoLevel},
		{name: "configured", level: "warn", want: zapcore.WarnLevel},
		{name: "unparsable", level: "loud", want: zapcore.InfoLevel},
		{name: "debug wins", level: "error", debug: true, want: zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg := newBootstrapLogger(tt.level, tt.debug)
			assert.True(t, lg.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, lg.Core().Enabled(tt.want-1))
			}
		})
	}
}
