package log

import "testing"

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{DirectionIn.String(), "IN"},
		{DirectionOut.String(), "OUT"},
		{Direction(9).String(), "UNKNOWN"},
		{LayerBus.String(), "BUS"},
		{LayerClock.String(), "CLOCK"},
		{LayerBridge.String(), "BRIDGE"},
		{Layer(9).String(), "UNKNOWN"},
		{CategoryTransaction.String(), "TRANSACTION"},
		{CategoryState.String(), "STATE"},
		{CategoryError.String(), "ERROR"},
		{CategoryFrame.String(), "FRAME"},
		{CategoryMessage.String(), "MESSAGE"},
		{OutcomeAck.String(), "ACK"},
		{OutcomeStalled.String(), "STALLED"},
		{OutcomeAborted.String(), "ABORTED"},
		{MessageTypeResponse.String(), "RESPONSE"},
		{StateEntityPLL.String(), "PLL"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestParseLayerAndCategory(t *testing.T) {
	if l, ok := ParseLayer("Bridge"); !ok || l != LayerBridge {
		t.Errorf("ParseLayer(Bridge) = %v, %v", l, ok)
	}
	if _, ok := ParseLayer("wire"); ok {
		t.Error("ParseLayer(wire) should fail")
	}
	if c, ok := ParseCategory("transaction"); !ok || c != CategoryTransaction {
		t.Errorf("ParseCategory(transaction) = %v, %v", c, ok)
	}
	if _, ok := ParseCategory("control"); ok {
		t.Error("ParseCategory(control) should fail")
	}
}

func TestEnumValuesAreStable(t *testing.T) {
	// Trace files persist these values.
	if LayerBus != 0 || LayerClock != 1 || LayerBridge != 2 {
		t.Error("layer values changed")
	}
	if CategoryTransaction != 0 || CategoryMessage != 4 {
		t.Error("category values changed")
	}
	if OutcomeAck != 0 || OutcomeAborted != 3 {
		t.Error("outcome values changed")
	}
}
