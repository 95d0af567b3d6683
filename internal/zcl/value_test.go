package zcl

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		name     string
		dataType uint8
		value    any
		want     []byte
		wantErr  bool
	}{
		{"bool true", TypeBool, true, []byte{0x01}, false},
		{"bool false", TypeBool, false, []byte{0x00}, false},
		{"bool wrong type", TypeBool, "true", nil, true},
		{"uint8", TypeUint8, uint8(0x2A), []byte{0x2A}, false},
		{"enum8", TypeEnum8, uint8(0x01), []byte{0x01}, false},
		{"bitmap8", TypeBitmap8, uint8(0x00), []byte{0x00}, false},
		{"uint16 little endian", TypeUint16, uint16(0x1234), []byte{0x34, 0x12}, false},
		{"string length prefixed", TypeCharStr, "FAN", []byte{0x03, 'F', 'A', 'N'}, false},
		{"empty string", TypeCharStr, "", []byte{0x00}, false},
		{"string too long", TypeCharStr, strings.Repeat("x", 255), nil, true},
		{"unsupported type", 0xF0, uint8(0), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeValue(tt.dataType, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EncodeValue error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeValue = % X, want % X", got, tt.want)
			}
		})
	}
}

func TestDecodeBool(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"one", []byte{0x01}, true},
		{"zero", []byte{0x00}, false},
		{"nonzero", []byte{0xFF}, true},
		{"empty decodes off", []byte{}, false},
		{"nil decodes off", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeBool(tt.data); got != tt.want {
				t.Errorf("DecodeBool(% X) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}
