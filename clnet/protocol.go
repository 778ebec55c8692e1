package clnet

// Server to client opcodes handled by the being and player receivers.
const (
	SMSGBeingVisible         = 0x0078
	SMSGBeingRemove          = 0x0080
	SMSGBeingMove2           = 0x0086
	SMSGPlayerStop           = 0x0088
	SMSGBeingAction          = 0x008a
	SMSGPlayerWarp           = 0x0091
	SMSGBeingNameResponse    = 0x0095
	SMSGBeingChangeDirection = 0x009c
	SMSGPlayerStatUpdate1    = 0x00b0
	SMSGPlayerStatUpdate2    = 0x00b1
	SMSGPlayerStatUpdate4    = 0x00bc
	SMSGPlayerStatUpdate6    = 0x00be
	SMSGBeingEmotion         = 0x00c0
	SMSGPlayerStatUpdate3    = 0x0141
	SMSGBeingResurrect       = 0x0148
	SMSGPvpMapMode           = 0x0199
	SMSGBeingMove3           = 0x0225
)

// Client to server opcodes.
const (
	CMSGNameRequest = 0x0094
)

// FromServerDirection translates the eAthena 0-8 direction code into the
// client's down/left/up/right bitmask. ok is false for codes above 8.
func FromServerDirection(d uint8) (dir uint8, ok bool) {
	switch d {
	case 0:
		return 1, true
	case 1:
		return 3, true
	case 2:
		return 2, true
	case 3:
		return 6, true
	case 4:
		return 4, true
	case 5:
		return 12, true
	case 6, 8:
		return 8, true
	case 7:
		return 9, true
	}
	return 0, false
}
