package accel

// CoreInputs are the input pins of an accelerator core. Clock is implicit:
// Core.Clock is the rising edge.
type CoreInputs struct {
	Reset       bool
	Strobe      bool
	Cycle       bool
	WriteEnable bool
	Select      uint8
	Address     uint32 // byte address, core-native width
	WriteData   uint32
}

// Aux are the auxiliary status outputs of the core. They are not part of the
// bus response.
type Aux struct {
	// Status is a 4-bit state value.
	Status uint8

	// Counter is a short free-running count of accepted beats.
	Counter uint8

	// Enable is a single enable flag.
	Enable bool
}

// CoreOutputs are the output pins of an accelerator core.
type CoreOutputs struct {
	Ack      bool
	ReadData uint32
	Aux      Aux
}

// Core is the pin contract of an accelerator core.
type Core interface {
	// Eval returns the outputs for the current cycle without changing state.
	Eval(in CoreInputs) CoreOutputs

	// Clock applies a rising edge.
	Clock(in CoreInputs)
}
