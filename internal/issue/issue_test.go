package issue

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "anything"))
}

func TestStepErrorMatchesSentinel(t *testing.T) {
	cause := fmt.Errorf("TMP and TEMP are empty: %w", ErrHostQueryFailed)
	err := Wrap(cause, "resolve Windows temp directory")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHostQueryFailed)
	assert.NotErrorIs(t, err, ErrMetadataUnavailable)
	assert.Equal(t,
		"failed to resolve Windows temp directory: TMP and TEMP are empty: host environment query failed",
		err.Error())
}

func TestFormat(t *testing.T) {
	err := &StepError{
		Step:        "detect toolchain",
		Suggestions: []string{"Update rustup", "Set CARGO_WIN_TOOLCHAIN_DETECT=false"},
		Cause:       fmt.Errorf("no Default host line: %w", ErrToolchainParseFailed),
	}

	short := err.Format(false)
	assert.Contains(t, short, "failed to detect toolchain")
	assert.Contains(t, short, "\n  • Update rustup")
	assert.NotContains(t, short, "Error chain")

	long := err.Format(true)
	assert.Contains(t, long, "Error chain:")
	assert.Contains(t, long, "2. toolchain report not understood")
}

func TestDisplay(t *testing.T) {
	plain := errors.New("boom")
	assert.Equal(t, "boom", Display(plain, true))

	wrapped := fmt.Errorf("run: %w", Wrap(ErrNoSubcommand, "forward command", "Try 'cargo win build'"))
	assert.Contains(t, Display(wrapped, false), "Try 'cargo win build'")
}
