// Package status defines the master status block exported over Modbus.
package status

// The layout is fixed: a reader locates every master by its slot alone.
const (
	SlotsPerDevice = 20 // block size, in registers

	SlotHealthCode      = 0 // Health* below
	SlotLastErrorCode   = 1 // SERR_* code of the last failed cycle
	SlotSecondsInError  = 2 // 1 Hz while not healthy, saturating
	SlotSlavesAvailable = 3 // bit n: slave n answered the probe
	SlotSlavesSetUp     = 4 // bit n: all drivers of slave n enabled
	SlotFramesHandled   = 5 // wrapping
	SlotFramesRejected  = 6 // wrapping

	// 7..10 unused

	SlotDeviceNameStart = 11
	SlotDeviceNameSlots = 8
	SlotDeviceNameEnd   = SlotDeviceNameStart + SlotDeviceNameSlots - 1

	// DeviceNameMaxChars is two ASCII characters per name slot.
	DeviceNameMaxChars = 2 * SlotDeviceNameSlots
)

// Health codes.
const (
	HealthUnknown  uint16 = 0 // boot, before registration
	HealthOK       uint16 = 1
	HealthError    uint16 = 2 // last cycle failed
	HealthNoSlaves uint16 = 3 // no slave answered the probe
)
