package tenduke

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	t.Parallel()
	t.Run("no-prefix", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := NewID()
		require.NoError(err)
		assert.NotEmpty(got)
	})
	t.Run("with-prefix", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := NewID(WithPrefix("corr"))
		require.NoError(err)
		assert.Truef(strings.HasPrefix(got, "corr_"), "%s wanted prefix \"corr_\"", got)
	})
	t.Run("unique", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		first, err := NewID()
		require.NoError(err)
		second, err := NewID()
		require.NoError(err)
		assert.NotEqual(first, second)
	})
}
