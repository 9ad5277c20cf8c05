package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/KetonAI/backend/internal/infrastructure/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LogConfig
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{name: "default", cfg: config.Default().Logging, wantLevel: zapcore.InfoLevel},
		{name: "development debug", cfg: config.LogConfig{Level: "debug", Development: true}, wantLevel: zapcore.DebugLevel},
		{name: "warn level", cfg: config.LogConfig{Level: "warn"}, wantLevel: zapcore.WarnLevel},
		{name: "upper case", cfg: config.LogConfig{Level: "ERROR"}, wantLevel: zapcore.ErrorLevel},
		{name: "invalid level", cfg: config.LogConfig{Level: "loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.ErrorContains(t, err, `invalid log level "loud"`)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.wantLevel))
			assert.False(t, logger.Core().Enabled(tt.wantLevel-1))
		})
	}
}

func TestEncoderConfig(t *testing.T) {
	prod := encoderConfig(false)
	assert.Equal(t, "message", prod.MessageKey)
	assert.Equal(t, "timestamp", prod.TimeKey)

	dev := encoderConfig(true)
	assert.Equal(t, "M", dev.MessageKey)
	assert.Equal(t, "S", dev.StacktraceKey)
}

func TestBootstrapAndWrap(t *testing.T) {
	boot := Bootstrap()
	require.NotNil(t, boot.Logger)
	assert.True(t, boot.Core().Enabled(zapcore.InfoLevel))

	assert.NotNil(t, Wrap(nil).Logger)

	z := zap.NewExample()
	assert.Same(t, z, Wrap(z).Logger)
}
