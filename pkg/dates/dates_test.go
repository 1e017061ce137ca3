package dates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	got, err := Normalize("2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", got)

	got, err = Normalize("01/01/2025")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", got)
}

func TestNormalizeInvalid(t *testing.T) {
	_, err := Normalize("")
	require.Error(t, err)

	_, err = Normalize("2025/01/01")
	require.Error(t, err)

	_, err = Normalize("13/45/2025")
	require.Error(t, err)
}

func TestVariantsCoverBothForms(t *testing.T) {
	forCanonical, err := Variants("2025-01-15")
	require.NoError(t, err)
	forLegacy, err := Variants("01/15/2025")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"2025-01-15", "01/15/2025"}, forCanonical)
	assert.ElementsMatch(t, forCanonical, forLegacy)
}

func TestCompactPrefix(t *testing.T) {
	got, err := CompactPrefix("01/05/2025")
	require.NoError(t, err)
	assert.Equal(t, "20250105", got)

	got, err = CompactPrefix("2025-12-31")
	require.NoError(t, err)
	assert.Equal(t, "20251231", got)
}
