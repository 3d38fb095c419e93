package auction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXRPToDrops(t *testing.T) {
	drops, err := XRPToDrops("1")
	require.NoError(t, err)
	assert.Equal(t, "1000000", drops)

	drops, err = XRPToDrops("12.5")
	require.NoError(t, err)
	assert.Equal(t, "12500000", drops)

	drops, err = XRPToDrops("0.000001")
	require.NoError(t, err)
	assert.Equal(t, "1", drops)

	_, err = XRPToDrops("0")
	assert.Error(t, err)

	_, err = XRPToDrops("-3")
	assert.Error(t, err)

	_, err = XRPToDrops("abc")
	assert.Error(t, err)

	_, err = XRPToDrops("0.0000001")
	assert.Error(t, err)
}

func TestDropsToXRP(t *testing.T) {
	xrp, err := DropsToXRP("12500000")
	require.NoError(t, err)
	assert.Equal(t, "12.5", xrp)

	xrp, err = DropsToXRP("1")
	require.NoError(t, err)
	assert.Equal(t, "0.000001", xrp)

	_, err = DropsToXRP("nope")
	assert.Error(t, err)
}
