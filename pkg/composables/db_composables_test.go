package composables

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUseTx_NoTxOrPool(t *testing.T) {
	_, err := UseTx(context.Background())
	require.ErrorIs(t, err, ErrNoPool)
}

func TestUsePool_Missing(t *testing.T) {
	_, err := UsePool(context.Background())
	require.ErrorIs(t, err, ErrNoPool)
}
