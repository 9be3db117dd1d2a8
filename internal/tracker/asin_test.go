package tracker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateASIN(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateASIN("B09FSCHFGK"))
	require.NoError(t, ValidateASIN("B0DLX35C16"))

	require.Error(t, ValidateASIN(" B09FSCHFGK "))
	require.Error(t, ValidateASIN("b09fschfgk"))
	require.Error(t, ValidateASIN("B09FSCHFG"))
	require.Error(t, ValidateASIN("B09FSCHFGKX"))
	require.Error(t, ValidateASIN("some other text"))
	require.Error(t, ValidateASIN(""))
}
