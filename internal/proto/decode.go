package proto

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// decodePayload dispatches a type byte to its variant parser. The caller
// (Decode, in codec.go) has already verified the checksum, so the frame
// boundary itself is trusted: a type byte outside the registry yields an
// UnknownTypeError, and any other error returned here is a
// MalformedPayloadError.
func decodePayload(t MessageType, p []byte) (Message, error) {
	switch t {
	case TypeReboot:
		return NewReboot(), nil
	case TypeClearStopCfg:
		return NewClearStopCfg(), nil
	case TypeAckClearStopCfg:
		return NewAckClearStopCfg(), nil
	case TypeResetCfgParams:
		return NewResetCfgParams(), nil
	case TypeAckResetCfgParams:
		return NewAckResetCfgParams(), nil
	case TypeAppRunning:
		return decodeAppRunning(p)
	case TypePing:
		return decodePing(p)
	case TypePong:
		return decodePong(p)
	case TypeStopCfg:
		return decodeStopCfg(p)
	case TypeAckStopCfg:
		return decodeAckStopCfg(p)
	case TypeSetCfgParam:
		return decodeSetCfgParam(p)
	case TypeAckSetCfgParam:
		return decodeAckSetCfgParam(p)
	case TypeGetCfgParam:
		return decodeGetCfgParam(p)
	case TypeAckGetCfgParam:
		return decodeAckGetCfgParam(p)
	case TypeSyncClock:
		return decodeSyncClock(p)
	case TypeDebugMsg:
		return decodeDebugMsg(p)
	case TypeFirmwareCode:
		return decodeFirmwareCode(p)
	case TypeContentMsg:
		return decodeContentMsg(p)
	case TypeAckContent:
		return decodeAckContent(p)
	case TypeContentDelete:
		return decodeContentDelete(p)
	case TypeAuthRequest:
		return decodeAuthRequest(p)
	case TypeAuthConfirm:
		return decodeAuthConfirm(p)
	case TypeShellCommand:
		return decodeShellCommand(p)
	default:
		return Message{}, &UnknownTypeError{Type: byte(t)}
	}
}

func malformed(t MessageType, format string, args ...interface{}) error {
	return &MalformedPayloadError{Type: byte(t), Detail: fmt.Sprintf(format, args...)}
}

func need(p []byte, n int, t MessageType) error {
	if len(p) < n {
		return malformed(t, "payload too short: need %d bytes, have %d", n, len(p))
	}
	return nil
}

// readU8N reads a 1-byte length prefix followed by that many bytes,
// starting at p[off]. It returns the slice, the offset just past it, and
// an error if the prefix or its bytes would run past the end of p.
func readU8N(p []byte, off int, t MessageType, field string) ([]byte, int, error) {
	if off >= len(p) {
		return nil, off, malformed(t, "%s: missing length byte", field)
	}
	n := int(p[off])
	off++
	if off+n > len(p) {
		return nil, off, malformed(t, "%s: length %d overruns payload", field, n)
	}
	return p[off : off+n], off + n, nil
}

func decodeAppRunning(p []byte) (Message, error) {
	if err := need(p, 2, TypeAppRunning); err != nil {
		return Message{}, err
	}
	return NewAppRunning(p[0], AppRunningReason(p[1])), nil
}

func decodePing(p []byte) (Message, error) {
	if err := need(p, 1, TypePing); err != nil {
		return Message{}, err
	}
	return NewPing(p[0]), nil
}

func decodePong(p []byte) (Message, error) {
	if err := need(p, 1, TypePong); err != nil {
		return Message{}, err
	}
	return NewPong(p[0]), nil
}

func decodeStopCfg(p []byte) (Message, error) {
	if err := need(p, 3, TypeStopCfg); err != nil {
		return Message{}, err
	}
	stopID := p[0]
	titleLen := int(p[1])
	phonemeLen := int(p[2])
	off := 3
	if err := need(p, off+titleLen+phonemeLen, TypeStopCfg); err != nil {
		return Message{}, err
	}
	title := string(p[off : off+titleLen])
	off += titleLen
	phoneme := string(p[off : off+phonemeLen])
	off += phonemeLen

	zero, off, err := readU8N(p, off, TypeStopCfg, "zero_countdown_msg")
	if err != nil {
		return Message{}, err
	}
	routeTag, off, err := readU8N(p, off, TypeStopCfg, "route_tag")
	if err != nil {
		return Message{}, err
	}
	sndMD5, off, err := readU8N(p, off, TypeStopCfg, "snd_md5")
	if err != nil {
		return Message{}, err
	}
	sndURL, _, err := readU8N(p, off, TypeStopCfg, "snd_url")
	if err != nil {
		return Message{}, err
	}
	return NewStopCfg(StopCfgFields{
		StopID:           stopID,
		Title:            title,
		Phoneme:          phoneme,
		ZeroCountdownMsg: append([]byte(nil), zero...),
		RouteTag:         append([]byte(nil), routeTag...),
		SndMD5:           append([]byte(nil), sndMD5...),
		SndURL:           append([]byte(nil), sndURL...),
	}), nil
}

func decodeAckStopCfg(p []byte) (Message, error) {
	if err := need(p, 2, TypeAckStopCfg); err != nil {
		return Message{}, err
	}
	return NewAckStopCfg(p[0], p[1]), nil
}

func decodeSetCfgParam(p []byte) (Message, error) {
	if err := need(p, 2, TypeSetCfgParam); err != nil {
		return Message{}, err
	}
	return NewSetCfgParam(p[0], p[1]), nil
}

func decodeAckSetCfgParam(p []byte) (Message, error) {
	if err := need(p, 3, TypeAckSetCfgParam); err != nil {
		return Message{}, err
	}
	return NewAckSetCfgParam(p[0], p[1], p[2]), nil
}

func decodeGetCfgParam(p []byte) (Message, error) {
	if err := need(p, 1, TypeGetCfgParam); err != nil {
		return Message{}, err
	}
	return NewGetCfgParam(p[0]), nil
}

func decodeAckGetCfgParam(p []byte) (Message, error) {
	if err := need(p, 3, TypeAckGetCfgParam); err != nil {
		return Message{}, err
	}
	return NewAckGetCfgParam(p[0], p[1], p[2]), nil
}

func decodeSyncClock(p []byte) (Message, error) {
	if err := need(p, 6, TypeSyncClock); err != nil {
		return Message{}, err
	}
	seqNum := p[0]
	epoch := binary.BigEndian.Uint32(p[1:5])
	zone := p[5]
	tz, _, err := readU8N(p, 6, TypeSyncClock, "tz")
	if err != nil {
		return Message{}, err
	}
	return NewSyncClock(seqNum, epoch, zone, append([]byte(nil), tz...)), nil
}

func decodeDebugMsg(p []byte) (Message, error) {
	if !utf8.Valid(p) {
		return Message{}, malformed(TypeDebugMsg, "payload is not valid UTF-8 text")
	}
	return NewDebugMsg(string(p)), nil
}

func decodeFirmwareCode(p []byte) (Message, error) {
	if err := need(p, 5, TypeFirmwareCode); err != nil {
		return Message{}, err
	}
	seq := p[0]
	destAddr := binary.BigEndian.Uint16(p[1:3])
	numBytes := binary.BigEndian.Uint16(p[3:5])
	chunk := p[5:]
	if len(chunk) != int(numBytes) {
		return Message{}, malformed(TypeFirmwareCode, "reported code chunk size %d does not match actual %d bytes", numBytes, len(chunk))
	}
	return NewFirmwareCode(seq, destAddr, append([]byte(nil), chunk...)), nil
}

func decodeContentMsg(p []byte) (Message, error) {
	if err := need(p, 9, TypeContentMsg); err != nil {
		return Message{}, err
	}
	contentID := binary.BigEndian.Uint16(p[0:2])
	channel := p[2]
	flags := p[3]
	bookingID := binary.BigEndian.Uint16(p[4:6])
	priority := binary.BigEndian.Uint16(p[6:8])
	n := int(p[8])

	off := 9
	var payloads []ContentPayload
	if n > 0 {
		payloads = make([]ContentPayload, 0, n)
	}
	for i := 0; i < n; i++ {
		if err := need(p, off+3, TypeContentMsg); err != nil {
			return Message{}, err
		}
		kind := PayloadKind(p[off])
		if !kind.valid() {
			return Message{}, malformed(TypeContentMsg, "payload %d: invalid kind %d", i, p[off])
		}
		ln := int(binary.BigEndian.Uint16(p[off+1 : off+3]))
		off += 3
		if err := need(p, off+ln, TypeContentMsg); err != nil {
			return Message{}, err
		}
		payloads = append(payloads, ContentPayload{Kind: kind, Bytes: append([]byte(nil), p[off:off+ln]...)})
		off += ln
	}

	return NewContentMsg(ContentMsgFields{
		ContentID:           contentID,
		Channel:             channel,
		CountImpressions:    flags&0x1 != 0,
		DisplayIndefinitely: flags&0x2 != 0,
		BookingID:           bookingID,
		Priority:            priority,
		Payloads:            payloads,
	}), nil
}

func decodeAckContent(p []byte) (Message, error) {
	if err := need(p, 3, TypeAckContent); err != nil {
		return Message{}, err
	}
	return NewAckContent(binary.BigEndian.Uint16(p[0:2]), p[2]), nil
}

func decodeContentDelete(p []byte) (Message, error) {
	if err := need(p, 2, TypeContentDelete); err != nil {
		return Message{}, err
	}
	return NewContentDelete(binary.BigEndian.Uint16(p[0:2])), nil
}

func decodeAuthRequest(p []byte) (Message, error) {
	if err := need(p, 1, TypeAuthRequest); err != nil {
		return Message{}, err
	}
	return NewAuthRequest(p[0]), nil
}

func decodeAuthConfirm(p []byte) (Message, error) {
	if err := need(p, 7, TypeAuthConfirm); err != nil {
		return Message{}, err
	}
	var addr [4]byte
	copy(addr[:], p[1:5])
	port := binary.BigEndian.Uint16(p[5:7])
	return NewAuthConfirm(p[0], addr, port), nil
}

func decodeShellCommand(p []byte) (Message, error) {
	if err := need(p, 3, TypeShellCommand); err != nil {
		return Message{}, err
	}
	commandID := p[0]
	cmdLen := int(binary.BigEndian.Uint16(p[1:3]))
	if err := need(p, 3+cmdLen, TypeShellCommand); err != nil {
		return Message{}, err
	}
	cmd := p[3 : 3+cmdLen]
	if !utf8.Valid(cmd) {
		return Message{}, malformed(TypeShellCommand, "command is not valid UTF-8 text")
	}
	return NewShellCommand(commandID, string(cmd)), nil
}
