// Package zcl holds the ZCL constants and value encoding for the clusters
// this device serves.
package zcl

// ZCL data type IDs.
const (
	TypeBool    uint8 = 0x10
	TypeBitmap8 uint8 = 0x18
	TypeUint8   uint8 = 0x20
	TypeUint16  uint8 = 0x21
	TypeEnum8   uint8 = 0x30
	TypeCharStr uint8 = 0x42
)

// TypeName returns a human-readable name for a ZCL type.
func TypeName(typeID uint8) string {
	switch typeID {
	case TypeBool:
		return "bool"
	case TypeBitmap8:
		return "bitmap8"
	case TypeUint8:
		return "uint8"
	case TypeUint16:
		return "uint16"
	case TypeEnum8:
		return "enum8"
	case TypeCharStr:
		return "string"
	default:
		return "unknown"
	}
}

// ZCL status codes
const (
	StatusSuccess           uint8 = 0x00
	StatusFailure           uint8 = 0x01
	StatusInvalidValue      uint8 = 0x87
	StatusReadOnly          uint8 = 0x88
	StatusInsufficientSpace uint8 = 0x89
	StatusNotFound          uint8 = 0x8B
	StatusInvalidDataType   uint8 = 0x8D
)

// StatusName returns a human-readable name for a ZCL status code.
func StatusName(status uint8) string {
	switch status {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusInvalidValue:
		return "invalid value"
	case StatusReadOnly:
		return "read only"
	case StatusInsufficientSpace:
		return "insufficient space"
	case StatusNotFound:
		return "not found"
	case StatusInvalidDataType:
		return "invalid data type"
	default:
		return "unknown"
	}
}
