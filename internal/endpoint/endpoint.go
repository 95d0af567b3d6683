// Package endpoint builds the static description of the Zigbee endpoint
// this device exposes: an HA On/Off Light with the five standard clusters.
package endpoint

import (
	"errors"
	"fmt"

	"zigbee-fanswitch/internal/zcl"
)

// ErrDescriptorTooLarge is returned when the encoded descriptor does not
// fit a single transport frame. Fatal at boot.
var ErrDescriptorTooLarge = errors.New("endpoint descriptor exceeds frame size")

// MaxEncodedSize is the largest descriptor the NCP registration frame can
// carry.
const MaxEncodedSize = 255

// Attribute is a cluster attribute with its initial value.
type Attribute struct {
	ID    uint16
	Type  uint8
	Value any
}

// Cluster is a server cluster exposed by the endpoint.
type Cluster struct {
	ID         uint16
	Attributes []Attribute
}

// Descriptor describes the protocol-visible device. Built once at startup,
// handed to the stack at registration, never mutated afterward.
type Descriptor struct {
	Endpoint      uint8
	ProfileID     uint16
	DeviceID      uint16
	DeviceVersion uint8
	Clusters      []Cluster
}

// Config holds the fixed identity the descriptor is built from.
type Config struct {
	Endpoint         uint8
	ManufacturerName string
	ModelIdentifier  string
	InitialOnOff     bool
}

// Build constructs the descriptor. Deterministic given identical inputs;
// the only failure is a descriptor too large to register.
func Build(cfg Config) (*Descriptor, error) {
	d := &Descriptor{
		Endpoint:  cfg.Endpoint,
		ProfileID: zcl.ProfileHomeAutomation,
		DeviceID:  zcl.DeviceOnOffLight,
		Clusters: []Cluster{
			{
				ID: zcl.ClusterBasic,
				Attributes: []Attribute{
					{ID: zcl.AttrBasicZCLVersion, Type: zcl.TypeUint8, Value: zcl.ZCLVersion},
					{ID: zcl.AttrBasicPowerSource, Type: zcl.TypeEnum8, Value: zcl.PowerSourceMains},
					{ID: zcl.AttrBasicManufacturerName, Type: zcl.TypeCharStr, Value: cfg.ManufacturerName},
					{ID: zcl.AttrBasicModelIdentifier, Type: zcl.TypeCharStr, Value: cfg.ModelIdentifier},
				},
			},
			{
				ID: zcl.ClusterIdentify,
				Attributes: []Attribute{
					// Not currently identifying.
					{ID: zcl.AttrIdentifyTime, Type: zcl.TypeUint16, Value: uint16(0)},
				},
			},
			{
				ID: zcl.ClusterGroups,
				Attributes: []Attribute{
					{ID: zcl.AttrGroupsNameSupport, Type: zcl.TypeBitmap8, Value: uint8(0)},
				},
			},
			{
				ID: zcl.ClusterScenes,
				Attributes: []Attribute{
					{ID: zcl.AttrScenesSceneCount, Type: zcl.TypeUint8, Value: uint8(0)},
					{ID: zcl.AttrScenesCurrentScene, Type: zcl.TypeUint8, Value: uint8(0)},
					{ID: zcl.AttrScenesCurrentGroup, Type: zcl.TypeUint16, Value: uint16(0)},
					{ID: zcl.AttrScenesSceneValid, Type: zcl.TypeBool, Value: false},
					{ID: zcl.AttrScenesNameSupport, Type: zcl.TypeBitmap8, Value: uint8(0)},
				},
			},
			{
				ID: zcl.ClusterOnOff,
				Attributes: []Attribute{
					{ID: zcl.AttrOnOffOnOff, Type: zcl.TypeBool, Value: cfg.InitialOnOff},
				},
			},
		},
	}

	// Validate up front that the descriptor can actually be registered.
	if _, err := d.Encode(); err != nil {
		return nil, err
	}
	return d, nil
}

// Encode serializes the descriptor for the registration frame:
// endpoint, profile, device id (LE), version, then per cluster its id and
// length-prefixed attribute records.
func (d *Descriptor) Encode() ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = append(buf, d.Endpoint)
	buf = append(buf, byte(d.ProfileID), byte(d.ProfileID>>8))
	buf = append(buf, byte(d.DeviceID), byte(d.DeviceID>>8))
	buf = append(buf, d.DeviceVersion)
	buf = append(buf, byte(len(d.Clusters)))

	for _, cl := range d.Clusters {
		buf = append(buf, byte(cl.ID), byte(cl.ID>>8))
		buf = append(buf, byte(len(cl.Attributes)))
		for _, attr := range cl.Attributes {
			val, err := zcl.EncodeValue(attr.Type, attr.Value)
			if err != nil {
				return nil, fmt.Errorf("encode cluster 0x%04X attr 0x%04X: %w", cl.ID, attr.ID, err)
			}
			buf = append(buf, byte(attr.ID), byte(attr.ID>>8))
			buf = append(buf, attr.Type, byte(len(val)))
			buf = append(buf, val...)
		}
	}

	if len(buf) > MaxEncodedSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrDescriptorTooLarge, len(buf))
	}
	return buf, nil
}

// FindCluster returns the cluster with the given ID, or nil.
func (d *Descriptor) FindCluster(id uint16) *Cluster {
	for i := range d.Clusters {
		if d.Clusters[i].ID == id {
			return &d.Clusters[i]
		}
	}
	return nil
}
