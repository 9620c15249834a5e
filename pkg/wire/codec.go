package wire

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// MaxMessageSize bounds an encoded message. An Info response with a full
// region table stays well below it.
const MaxMessageSize = 16 * 1024

// ErrMessageTooLarge is returned for encoded messages above MaxMessageSize.
var ErrMessageTooLarge = errors.New("message too large")

// Requests and responses are small fixed maps: encode canonically with
// definite lengths, decode leniently so newer hosts may add keys.
var (
	enc = mustEncMode(cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	})
	dec = mustDecMode(cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		IndefLength:      cbor.IndefLengthForbidden,
		MaxArrayElements: 1024,
		MaxMapPairs:      64,
	})
)

func mustEncMode(o cbor.EncOptions) cbor.EncMode {
	m, err := o.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: encoder options: %v", err))
	}
	return m
}

func mustDecMode(o cbor.DecOptions) cbor.DecMode {
	m, err := o.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: decoder options: %v", err))
	}
	return m
}

// Marshal encodes v with the bridge encoding.
func Marshal(v any) ([]byte, error) {
	data, err := enc.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(data) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(data))
	}
	return data, nil
}

// Unmarshal decodes a bridge message into v.
func Unmarshal(data []byte, v any) error {
	if len(data) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(data))
	}
	return dec.Unmarshal(data, v)
}

// EncodeRequest validates and encodes req.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return Marshal(req)
}

// DecodeRequest decodes a request. A request that decodes but fails
// validation is returned with the error so its message ID can be answered.
func DecodeRequest(data []byte) (*Request, error) {
	req := new(Request)
	if err := Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return req, fmt.Errorf("invalid request: %w", err)
	}
	return req, nil
}

// EncodeResponse encodes resp. The message ID must be set.
func EncodeResponse(resp *Response) ([]byte, error) {
	if resp.MessageID == 0 {
		return nil, ErrZeroMessageID
	}
	return Marshal(resp)
}

// DecodeResponse decodes a response.
func DecodeResponse(data []byte) (*Response, error) {
	resp := new(Response)
	if err := Unmarshal(data, resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}
