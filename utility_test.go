// FILE: lixenwraith/logroll/utility_test.go
package logroll

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyValue(t *testing.T) {
	tests := []struct {
		input     string
		wantKey   string
		wantValue string
		wantErr   bool
	}{
		{"key=value", "key", "value", false},
		{" key = value ", "key", "value", false},
		{"key=value=with=equals", "key", "value=with=equals", false},
		{"noequals", "", "", true},
		{"=value", "", "", true},
		{"key=", "key", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			key, value, err := parseKeyValue(tt.input)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantKey, key)
				assert.Equal(t, tt.wantValue, value)
			}
		})
	}
}

func TestFmtErrorf(t *testing.T) {
	err := fmtErrorf("test error: %s", "details")
	assert.Error(t, err)
	assert.Equal(t, "logroll: test error: details", err.Error())

	// Already prefixed
	err = fmtErrorf("logroll: existing prefix")
	assert.Equal(t, "logroll: existing prefix", err.Error())
}

func TestCombineErrors(t *testing.T) {
	e1 := errors.New("first")
	e2 := fmt.Errorf("second: %w", ErrClosed)

	assert.Nil(t, combineErrors(nil, nil))
	assert.Equal(t, e1, combineErrors(e1, nil))
	assert.Equal(t, e2, combineErrors(nil, e2))

	combined := combineErrors(e1, e2)
	assert.Equal(t, "first; second: logroll: closed", combined.Error())
	assert.ErrorIs(t, combined, ErrClosed)
}

func TestNormalizeKey(t *testing.T) {
	dir := t.TempDir()

	k1, err := normalizeKey(filepath.Join(dir, "App.log"))
	require.NoError(t, err)
	k2, err := normalizeKey("  " + filepath.Join(dir, "sub", "..", "app.log") + " ")
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Equal(t, strings.ToLower(k1), k1)

	_, err = normalizeKey("   ")
	assert.ErrorIs(t, err, ErrNoPath)

	abs, err := canonicalPath("relative.log")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))
}

func TestSplitName(t *testing.T) {
	name, ext := splitName("/var/log/app.log")
	assert.Equal(t, "app", name)
	assert.Equal(t, ".log", ext)

	name, ext = splitName("/var/log/service.access.log")
	assert.Equal(t, "service.access", name)
	assert.Equal(t, ".log", ext)

	name, ext = splitName("/var/log/messages")
	assert.Equal(t, "messages", name)
	assert.Equal(t, "", ext)
}

func TestIsClosed(t *testing.T) {
	assert.True(t, IsClosed(ErrClosed))
	assert.True(t, IsClosed(ErrPoolClosed))
	assert.True(t, IsClosed(fmt.Errorf("wrapped: %w", ErrPoolClosed)))
	assert.False(t, IsClosed(ErrNoPath))
	assert.False(t, IsClosed(nil))
}
