package oracle

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckEnvironment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		output     string
		minVersion string
		expected   string
		wantErr    bool
	}{
		{"recent", "This is CVC4 version 1.8\ncompiled with GCC", "1.5", "1.8.0", false},
		{"prerelease", "This is CVC4 version 1.5-prerelease [git master]", "1.5", "1.5.0", false},
		{"too old", "This is CVC4 version 1.4", "1.5", "1.4.0", true},
		{"unrecognized", "hello", "1.5", "", true},
		{"no minimum", "hello", "", "", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := fakeConfig(fakeProver(t, "echo '"+tt.output+"'"))
			cfg.MinVersion = tt.minVersion

			v, err := CheckEnvironment(context.Background(), cfg)
			if tt.wantErr {
				var envErr *EnvironmentError
				assert.ErrorAs(t, err, &envErr)
			} else {
				require.NoError(t, err)
			}
			if tt.expected != "" {
				require.NotNil(t, v)
				assert.Equal(t, tt.expected, v.String())
			}
		})
	}
}

func TestCheckEnvironment_NotFound(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "cvc4")
	_, err := CheckEnvironment(context.Background(), cfg)
	var envErr *EnvironmentError
	require.ErrorAs(t, err, &envErr)
	assert.Contains(t, err.Error(), "prover not found")
}
