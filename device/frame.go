package device

const (
	CmdToneUpdate = 0x01
	CmdReset      = 0x02
	CmdIdentify   = 0x03

	toneTrailer = 0x01
)

// MagicID is the reply a tone generator sends to CmdIdentify.
var MagicID = [4]byte{0x61, 0xd8, 0x6e, 0x1c}

// ToneFrame sets the tone of the generator. Velocity 0 silences it.
type ToneFrame struct {
	Frequency uint16 // Hz
	Velocity  uint8
}

// Encode builds the on-wire representation, big endian:
//
//	[CMD][freqHi][freqLo][velocity][0x01]
func (f ToneFrame) Encode() []byte {
	return []byte{
		CmdToneUpdate,
		byte(f.Frequency >> 8),
		byte(f.Frequency),
		f.Velocity,
		toneTrailer,
	}
}

// ResetFrame silences every voice.
func ResetFrame() []byte {
	return []byte{CmdReset}
}

// IdentifyFrame asks the device for its 4-byte ID.
func IdentifyFrame() []byte {
	return []byte{CmdIdentify}
}
