package wire

import (
	"errors"
	"fmt"
)

// MaxSelect is the widest byte-lane mask of a 32-bit bus.
const MaxSelect uint8 = 0xF

// Validation errors.
var (
	ErrZeroMessageID = errors.New("messageId 0 is reserved")
	ErrInvalidOp     = errors.New("invalid operation")
	ErrUnaligned     = errors.New("address is not word aligned")
	ErrInvalidSelect = errors.New("invalid select mask")
)

// Request is a bridge request from the host.
//
// CBOR encoding:
//
//	{
//	  1: messageId,  // uint32, non-zero
//	  2: op,         // uint8: 1=Read, 2=Write, 3=Reset, 4=Info
//	  3: address,    // uint32 byte address (Read, Write)
//	  4: data,       // uint32 write data, or reset cycles
//	  5: select      // uint8 lane mask (Write); absent means all lanes
//	}
type Request struct {
	MessageID uint32 `cbor:"1,keyasint"`
	Op        Op     `cbor:"2,keyasint"`
	Address   uint32 `cbor:"3,keyasint,omitempty"`
	Data      uint32 `cbor:"4,keyasint,omitempty"`
	Select    uint8  `cbor:"5,keyasint,omitempty"`
}

// Validate checks if the request is valid.
func (r *Request) Validate() error {
	if r.MessageID == 0 {
		return ErrZeroMessageID
	}
	if !r.Op.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidOp, r.Op)
	}
	if r.Op.HasAddress() && r.Address%4 != 0 {
		return fmt.Errorf("%w: %#x", ErrUnaligned, r.Address)
	}
	if r.Select > MaxSelect {
		return fmt.Errorf("%w: %#x", ErrInvalidSelect, r.Select)
	}
	return nil
}

// Lanes returns the effective lane mask.
func (r *Request) Lanes() uint8 {
	if r.Select == 0 {
		return MaxSelect
	}
	return r.Select
}

// Response answers a request.
//
// CBOR encoding:
//
//	{
//	  1: messageId,  // uint32: matches request
//	  2: status,     // uint8: 0=ok, or error code
//	  3: data,       // uint32 read data
//	  4: payload,    // Info payload (Info only)
//	  5: message     // error detail
//	}
type Response struct {
	MessageID uint32       `cbor:"1,keyasint"`
	Status    Status       `cbor:"2,keyasint"`
	Data      uint32       `cbor:"3,keyasint,omitempty"`
	Payload   *InfoPayload `cbor:"4,keyasint,omitempty"`
	Message   string       `cbor:"5,keyasint,omitempty"`
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// InfoPayload describes the SoC behind a bridge.
type InfoPayload struct {
	Ident      string       `cbor:"1,keyasint"`
	BuildID    string       `cbor:"2,keyasint,omitempty"`
	SysClkFreq uint64       `cbor:"3,keyasint"`
	Regions    []RegionInfo `cbor:"4,keyasint,omitempty"`
}

// RegionInfo is one row of the software-visible region table.
type RegionInfo struct {
	Name   string `cbor:"1,keyasint"`
	Origin uint32 `cbor:"2,keyasint"`
	Length uint64 `cbor:"3,keyasint"`
	Type   string `cbor:"4,keyasint"`
	Mode   string `cbor:"5,keyasint,omitempty"`
}
