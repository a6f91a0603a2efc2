package proto

import (
	"encoding/binary"
	"fmt"
)

// encodePayload serializes the variant fields selected by m.Type into wire
// bytes. It returns an error only for a structurally ill-formed Message —
// a declared length that can't fit its wire width. It never fails for I/O
// reasons; callers write the returned bytes themselves.
func encodePayload(m Message) ([]byte, error) {
	switch m.Type {
	case TypeReboot, TypeClearStopCfg, TypeAckClearStopCfg, TypeResetCfgParams, TypeAckResetCfgParams:
		return nil, nil
	case TypeAppRunning:
		f := m.AppRunning
		return []byte{f.SeqNum, byte(f.Reason)}, nil
	case TypePing:
		return []byte{m.Ping.SeqNum}, nil
	case TypePong:
		return []byte{m.Pong.SeqNum}, nil
	case TypeStopCfg:
		return encodeStopCfg(m.StopCfg)
	case TypeAckStopCfg:
		f := m.AckStopCfg
		return []byte{f.StopID, f.Error}, nil
	case TypeSetCfgParam:
		f := m.SetCfgParam
		return []byte{f.Param, f.Value}, nil
	case TypeAckSetCfgParam:
		f := m.AckSetCfgParam
		return []byte{f.Param, f.Error, f.Value}, nil
	case TypeGetCfgParam:
		return []byte{m.GetCfgParam.Param}, nil
	case TypeAckGetCfgParam:
		f := m.AckGetCfgParam
		return []byte{f.Param, f.Error, f.Value}, nil
	case TypeSyncClock:
		return encodeSyncClock(m.SyncClock)
	case TypeDebugMsg:
		return []byte(m.DebugMsg.Text), nil
	case TypeFirmwareCode:
		return encodeFirmwareCode(m.FirmwareCode)
	case TypeContentMsg:
		return encodeContentMsg(m.ContentMsg)
	case TypeAckContent:
		f := m.AckContent
		out := make([]byte, 3)
		binary.BigEndian.PutUint16(out[0:2], f.ContentID)
		out[2] = f.Error
		return out, nil
	case TypeContentDelete:
		out := make([]byte, 2)
		binary.BigEndian.PutUint16(out, m.ContentDelete.ContentID)
		return out, nil
	case TypeAuthRequest:
		return []byte{m.AuthRequest.Method}, nil
	case TypeAuthConfirm:
		return encodeAuthConfirm(m.AuthConfirm)
	case TypeShellCommand:
		return encodeShellCommand(m.ShellCommand)
	default:
		return nil, fmt.Errorf("proto: encode: unsupported message type %d", byte(m.Type))
	}
}

func appendU8N(out []byte, field string, b []byte) ([]byte, error) {
	if len(b) > 0xFF {
		return nil, fmt.Errorf("proto: encode: %s too long (%d bytes, max 255)", field, len(b))
	}
	out = append(out, byte(len(b)))
	return append(out, b...), nil
}

func encodeStopCfg(f *StopCfgFields) ([]byte, error) {
	title := []byte(f.Title)
	phoneme := []byte(f.Phoneme)
	if len(title) > 0xFF {
		return nil, fmt.Errorf("proto: encode: StopCfg.Title too long (%d bytes, max 255)", len(title))
	}
	if len(phoneme) > 0xFF {
		return nil, fmt.Errorf("proto: encode: StopCfg.Phoneme too long (%d bytes, max 255)", len(phoneme))
	}
	out := make([]byte, 0, 3+len(title)+len(phoneme)+4)
	out = append(out, f.StopID, byte(len(title)), byte(len(phoneme)))
	out = append(out, title...)
	out = append(out, phoneme...)
	var err error
	if out, err = appendU8N(out, "ZeroCountdownMsg", f.ZeroCountdownMsg); err != nil {
		return nil, err
	}
	if out, err = appendU8N(out, "RouteTag", f.RouteTag); err != nil {
		return nil, err
	}
	if out, err = appendU8N(out, "SndMD5", f.SndMD5); err != nil {
		return nil, err
	}
	if out, err = appendU8N(out, "SndURL", f.SndURL); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeSyncClock(f *SyncClockFields) ([]byte, error) {
	out := make([]byte, 6, 6+len(f.TZ)+1)
	out[0] = f.SeqNum
	binary.BigEndian.PutUint32(out[1:5], f.EpochSec)
	out[5] = f.ZoneOffset
	return appendU8N(out, "TZ", f.TZ)
}

func encodeFirmwareCode(f *FirmwareCodeFields) ([]byte, error) {
	if len(f.CodeChunk) != int(f.NumBytes) {
		return nil, fmt.Errorf("proto: encode: FirmwareCode.NumBytes (%d) does not match len(CodeChunk) (%d)", f.NumBytes, len(f.CodeChunk))
	}
	if len(f.CodeChunk) > 0xFFFF {
		return nil, fmt.Errorf("proto: encode: FirmwareCode.CodeChunk too long (%d bytes)", len(f.CodeChunk))
	}
	out := make([]byte, 5, 5+len(f.CodeChunk))
	out[0] = f.Seq
	binary.BigEndian.PutUint16(out[1:3], f.DestAddr)
	binary.BigEndian.PutUint16(out[3:5], f.NumBytes)
	return append(out, f.CodeChunk...), nil
}

func encodeContentMsg(f *ContentMsgFields) ([]byte, error) {
	if len(f.Payloads) > 0xFF {
		return nil, fmt.Errorf("proto: encode: ContentMsg has too many payloads (%d, max 255)", len(f.Payloads))
	}
	out := make([]byte, 9)
	binary.BigEndian.PutUint16(out[0:2], f.ContentID)
	out[2] = f.Channel
	var flags byte
	if f.CountImpressions {
		flags |= 0x1
	}
	if f.DisplayIndefinitely {
		flags |= 0x2
	}
	out[3] = flags
	binary.BigEndian.PutUint16(out[4:6], f.BookingID)
	binary.BigEndian.PutUint16(out[6:8], f.Priority)
	out[8] = byte(len(f.Payloads))
	for i, pl := range f.Payloads {
		if !pl.Kind.valid() {
			return nil, fmt.Errorf("proto: encode: ContentMsg payload %d: invalid kind %d", i, byte(pl.Kind))
		}
		if len(pl.Bytes) > 0xFFFF {
			return nil, fmt.Errorf("proto: encode: ContentMsg payload %d too long (%d bytes)", i, len(pl.Bytes))
		}
		var lb [2]byte
		binary.BigEndian.PutUint16(lb[:], uint16(len(pl.Bytes)))
		out = append(out, byte(pl.Kind))
		out = append(out, lb[:]...)
		out = append(out, pl.Bytes...)
	}
	return out, nil
}

func encodeAuthConfirm(f *AuthConfirmFields) ([]byte, error) {
	out := make([]byte, 7)
	out[0] = f.ConfCode
	copy(out[1:5], f.Address[:])
	binary.BigEndian.PutUint16(out[5:7], f.Port)
	return out, nil
}

func encodeShellCommand(f *ShellCommandFields) ([]byte, error) {
	cmd := []byte(f.Command)
	if len(cmd) > 0xFFFF {
		return nil, fmt.Errorf("proto: encode: ShellCommand.Command too long (%d bytes)", len(cmd))
	}
	out := make([]byte, 3, 3+len(cmd))
	out[0] = f.CommandID
	binary.BigEndian.PutUint16(out[1:3], uint16(len(cmd)))
	return append(out, cmd...), nil
}
