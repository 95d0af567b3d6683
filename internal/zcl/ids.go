package zcl

// Cluster IDs served by this device.
const (
	ClusterBasic    uint16 = 0x0000
	ClusterIdentify uint16 = 0x0003
	ClusterGroups   uint16 = 0x0004
	ClusterScenes   uint16 = 0x0005
	ClusterOnOff    uint16 = 0x0006
)

// ClusterName returns the name of a cluster this device knows about.
func ClusterName(id uint16) string {
	switch id {
	case ClusterBasic:
		return "Basic"
	case ClusterIdentify:
		return "Identify"
	case ClusterGroups:
		return "Groups"
	case ClusterScenes:
		return "Scenes"
	case ClusterOnOff:
		return "On/Off"
	default:
		return "unknown"
	}
}

// Basic cluster attributes.
const (
	AttrBasicZCLVersion       uint16 = 0x0000
	AttrBasicManufacturerName uint16 = 0x0004
	AttrBasicModelIdentifier  uint16 = 0x0005
	AttrBasicPowerSource      uint16 = 0x0007
)

// Identify cluster attributes.
const (
	AttrIdentifyTime uint16 = 0x0000
)

// Groups cluster attributes.
const (
	AttrGroupsNameSupport uint16 = 0x0000
)

// Scenes cluster attributes.
const (
	AttrScenesSceneCount   uint16 = 0x0000
	AttrScenesCurrentScene uint16 = 0x0001
	AttrScenesCurrentGroup uint16 = 0x0002
	AttrScenesSceneValid   uint16 = 0x0003
	AttrScenesNameSupport  uint16 = 0x0004
)

// On/Off cluster attributes.
const (
	AttrOnOffOnOff uint16 = 0x0000
)

// Profile and device identifiers.
const (
	ProfileHomeAutomation uint16 = 0x0104
	DeviceOnOffLight      uint16 = 0x0100 // best Zigbee2MQTT compatibility
)

// Basic cluster attribute values.
const (
	ZCLVersion       uint8 = 0x03
	PowerSourceMains uint8 = 0x01 // mains, single phase
)
