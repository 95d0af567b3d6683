package zcl

import (
	"encoding/binary"
	"fmt"
)

// EncodeValue serializes an attribute value for its ZCL data type.
// Multi-byte integers are little-endian; character strings carry a one-byte
// length prefix.
func EncodeValue(dataType uint8, v any) ([]byte, error) {
	switch dataType {
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("encode bool: got %T", v)
		}
		if b {
			return []byte{0x01}, nil
		}
		return []byte{0x00}, nil

	case TypeUint8, TypeEnum8, TypeBitmap8:
		n, ok := v.(uint8)
		if !ok {
			return nil, fmt.Errorf("encode %s: got %T", TypeName(dataType), v)
		}
		return []byte{n}, nil

	case TypeUint16:
		n, ok := v.(uint16)
		if !ok {
			return nil, fmt.Errorf("encode uint16: got %T", v)
		}
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, n)
		return buf, nil

	case TypeCharStr:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("encode string: got %T", v)
		}
		if len(s) > 254 {
			return nil, fmt.Errorf("encode string: %d bytes exceeds ZCL limit", len(s))
		}
		buf := make([]byte, 0, len(s)+1)
		buf = append(buf, byte(len(s)))
		return append(buf, s...), nil

	default:
		return nil, fmt.Errorf("encode: unsupported type 0x%02X", dataType)
	}
}

// DecodeBool decodes a boolean attribute payload. An absent or empty value
// decodes to false: the conservative reading of a malformed payload.
func DecodeBool(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	return data[0] != 0
}
