package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlays_OpenIsIdempotentOverwrite(t *testing.T) {
	o := NewOverlays()

	o.Open(ModalCalculator, "first")
	o.Open(ModalCalculator, "second")

	got := o.Get(ModalCalculator)
	require.True(t, got.IsOpen, "isOpen stays true throughout")
	assert.Equal(t, "second", got.Data, "later data wins")
}

func TestOverlays_CloseClearsData(t *testing.T) {
	o := NewOverlays()
	o.Open(ModalSignature, "pad-state")

	o.Close(ModalSignature)

	got := o.Get(ModalSignature)
	assert.False(t, got.IsOpen)
	assert.Nil(t, got.Data)
}

func TestOverlays_CloseWhenClosedIsNoOp(t *testing.T) {
	o := NewOverlays()
	o.Close(ModalCalculator)
	assert.False(t, o.IsOpen(ModalCalculator))
}

func TestOverlays_IndependentlyAddressable(t *testing.T) {
	o := NewOverlays()

	o.Open(ModalPrivacyConsent, nil)
	o.Open(ModalCalculator, nil)
	o.Close(ModalPrivacyConsent)

	assert.False(t, o.IsOpen(ModalPrivacyConsent))
	assert.True(t, o.IsOpen(ModalCalculator), "closing one modal must not close another")
}
