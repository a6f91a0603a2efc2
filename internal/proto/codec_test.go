package proto

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	c := Codec{}
	frame, err := c.Encode(m)
	if err != nil {
		t.Fatalf("Encode(%v): %v", m.Type, err)
	}
	got, err := c.Decode(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("Decode(Encode(%v)): %v", m.Type, err)
	}
	if diff := cmp.Diff(m, got); diff != "" {
		t.Fatalf("round-trip mismatch for %v (-want +got):\n%s", m.Type, diff)
	}
	return got
}

func TestRoundTripAllVariants(t *testing.T) {
	cases := []Message{
		NewReboot(),
		NewClearStopCfg(),
		NewAckClearStopCfg(),
		NewResetCfgParams(),
		NewAckResetCfgParams(),
		NewAppRunning(7, ReasonPowerup),
		NewAppRunning(1, AppRunningReason(200)), // out-of-range byte still round-trips (§types.go)
		NewPing(7),
		NewPong(9),
		NewStopCfg(StopCfgFields{
			StopID:           3,
			Title:            "Main St",
			Phoneme:          "MAYN STREET",
			ZeroCountdownMsg: []byte("arriving"),
			RouteTag:         []byte("38L"),
			SndMD5:           []byte("deadbeefdeadbeefdeadbeefdeadbeef"),
			SndURL:           []byte("http://example.com/a.wav"),
		}),
		NewStopCfg(StopCfgFields{StopID: 0, Title: "", Phoneme: "", ZeroCountdownMsg: nil, RouteTag: nil, SndMD5: nil, SndURL: nil}),
		NewAckStopCfg(3, 0),
		NewSetCfgParam(5, 200),
		NewAckSetCfgParam(5, 0, 200),
		NewGetCfgParam(5),
		NewAckGetCfgParam(5, 0, 200),
		NewSyncClock(1, 1735689600, 8, []byte("America/Los_Angeles")),
		NewSyncClock(1, 0, 0, nil),
		NewDebugMsg("hello from the gateway"),
		NewDebugMsg(""),
		NewFirmwareCode(1, 0x1000, []byte{1, 2, 3, 4, 5}),
		NewFirmwareCode(1, 0x1000, nil),
		NewContentMsg(ContentMsgFields{
			ContentID:           0x0011,
			Channel:             2,
			CountImpressions:    false,
			DisplayIndefinitely: true,
			BookingID:           0,
			Priority:            0,
			Payloads:            []ContentPayload{{Kind: PayloadMsg, Bytes: []byte("hi")}},
		}),
		NewContentMsg(ContentMsgFields{
			ContentID: 99, Channel: 1, CountImpressions: true, DisplayIndefinitely: true,
			BookingID: 42, Priority: 7,
			Payloads: []ContentPayload{
				{Kind: PayloadMsg, Bytes: []byte("Next bus in 5 min")},
				{Kind: PayloadPhoneme, Bytes: []byte("NEKST BUHS")},
				{Kind: PayloadBitmap, Bytes: []byte{0xde, 0xad, 0xbe, 0xef}},
				{Kind: PayloadRouteTags, Bytes: []byte("38L,1,1X")},
			},
		}),
		NewContentMsg(ContentMsgFields{ContentID: 1, Payloads: nil}),
		NewAckContent(0x0011, 0),
		NewContentDelete(0x0011),
		NewAuthRequest(1),
		NewAuthConfirm(0, [4]byte{10, 0, 0, 1}, 4502),
		NewShellCommand(1, "reboot --now"),
		NewShellCommand(1, ""),
	}
	for _, m := range cases {
		m := m
		t.Run(m.Type.String(), func(t *testing.T) {
			roundTrip(t, m)
		})
	}
}

// TestPingEncodeScenario is the literal byte scenario from §8 scenario 1.
func TestPingEncodeScenario(t *testing.T) {
	frame, err := Codec{}.Encode(NewPing(7))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := checksum([]byte{0x0A, 0x00, 0x06, 0x07})
	got := []byte{0x0A, 0x00, 0x06, 0x07, byte(want >> 8), byte(want)}
	if !bytes.Equal(frame, got) {
		t.Fatalf("Ping frame = % X, want % X", frame, got)
	}
}

// TestRebootRoundTripScenario is §8 scenario 2.
func TestRebootRoundTripScenario(t *testing.T) {
	frame, err := Codec{}.Encode(NewReboot())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(frame) != 5 || frame[0] != 6 || frame[1] != 0 || frame[2] != 5 {
		t.Fatalf("Reboot frame = % X, want type=6 length=5", frame)
	}
	got, err := Codec{}.Decode(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Type != TypeReboot {
		t.Fatalf("decoded type = %v, want Reboot", got.Type)
	}
}

// TestUnknownTypeScenario is §8 scenario 3.
func TestUnknownTypeScenario(t *testing.T) {
	hdr := []byte{0xFF, 0x00, 0x05}
	cksum := checksum(hdr)
	frame := append(append([]byte{}, hdr...), byte(cksum>>8), byte(cksum))
	_, err := Codec{}.Decode(bytes.NewReader(frame))
	var ute *UnknownTypeError
	if !errors.As(err, &ute) {
		t.Fatalf("Decode err = %v, want *UnknownTypeError", err)
	}
	if ute.Type != 0xFF {
		t.Fatalf("UnknownTypeError.Type = %d, want 255", ute.Type)
	}
}

// TestChecksumMismatchScenario is §8 scenario 4.
func TestChecksumMismatchScenario(t *testing.T) {
	frame, err := Codec{}.Encode(NewPing(7))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	frame[len(frame)-1] ^= 0xFF
	_, err = Codec{}.Decode(bytes.NewReader(frame))
	var cme *ChecksumMismatchError
	if !errors.As(err, &cme) {
		t.Fatalf("Decode err = %v, want *ChecksumMismatchError", err)
	}
	if cme.Declared == cme.Computed {
		t.Fatalf("expected declared != computed, got both %04x", cme.Declared)
	}
}

// TestContentMsgScenario is §8 scenario 5: exact payload and frame bytes.
func TestContentMsgScenario(t *testing.T) {
	m := NewContentMsg(ContentMsgFields{
		ContentID:           0x0011,
		Channel:             2,
		CountImpressions:    false,
		DisplayIndefinitely: true,
		BookingID:           0,
		Priority:            0,
		Payloads:            []ContentPayload{{Kind: PayloadMsg, Bytes: []byte("hi")}},
	})
	frame, err := Codec{}.Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	wantPayload, _ := hex.DecodeString("0011020200000000010000026869")
	wantPrefix, _ := hex.DecodeString("200013")
	if !bytes.Equal(frame[:3], wantPrefix) {
		t.Fatalf("frame prefix = % X, want % X", frame[:3], wantPrefix)
	}
	if !bytes.Equal(frame[3:len(frame)-2], wantPayload) {
		t.Fatalf("frame payload = % X, want % X", frame[3:len(frame)-2], wantPayload)
	}
}

// TestStopCfgFieldOrderScenario is §8 scenario 6: wire order diverges from
// declaration order, and must be exact.
func TestStopCfgFieldOrderScenario(t *testing.T) {
	m := NewStopCfg(StopCfgFields{
		StopID:           5,
		Title:            "AB",
		Phoneme:          "CDE",
		ZeroCountdownMsg: []byte("Z"),
		RouteTag:         []byte("RT"),
		SndMD5:           []byte("MD5X"),
		SndURL:           []byte("U"),
	})
	frame, err := Codec{}.Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	payload := frame[3 : len(frame)-2]
	want := []byte{5, 2, 3} // stop_id, title_len, phoneme_len
	want = append(want, "AB"...)
	want = append(want, "CDE"...)
	want = append(want, 1)
	want = append(want, "Z"...)
	want = append(want, 2)
	want = append(want, "RT"...)
	want = append(want, 4)
	want = append(want, "MD5X"...)
	want = append(want, 1)
	want = append(want, "U"...)
	if !bytes.Equal(payload, want) {
		t.Fatalf("StopCfg payload = % X, want % X", payload, want)
	}
	got, err := Codec{}.Decode(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(m, got); diff != "" {
		t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeFramingTooShort(t *testing.T) {
	frame := []byte{6, 0, 4} // length < 5, no payload/checksum needed to trigger the check
	_, err := Codec{}.Decode(bytes.NewReader(frame))
	if !errors.Is(err, ErrFraming) {
		t.Fatalf("err = %v, want ErrFraming", err)
	}
}

func TestDecodeMalformedContentMsgPayloadOverrun(t *testing.T) {
	payload := []byte{0, 1, 2, 0, 0, 0, 0, 0, 1, byte(PayloadMsg), 0, 10} // claims 10 bytes, has 0
	hdr := make([]byte, 3)
	hdr[0] = byte(TypeContentMsg)
	binary.BigEndian.PutUint16(hdr[1:3], uint16(len(payload)+5))
	full := append(append([]byte{}, hdr...), payload...)
	cksum := checksum(full)
	full = append(full, byte(cksum>>8), byte(cksum))
	_, err := Codec{}.Decode(bytes.NewReader(full))
	var mpe *MalformedPayloadError
	if !errors.As(err, &mpe) {
		t.Fatalf("err = %v, want *MalformedPayloadError", err)
	}
}

func TestDecodeMalformedDebugMsgNonUTF8(t *testing.T) {
	bad := []byte{0xff, 0xfe, 0xfd}
	hdr := []byte{byte(TypeDebugMsg), 0, byte(len(bad) + 5)}
	buf := append(append([]byte{}, hdr...), bad...)
	cksum := checksum(buf)
	buf = append(buf, byte(cksum>>8), byte(cksum))
	_, err := Codec{}.Decode(bytes.NewReader(buf))
	var mpe *MalformedPayloadError
	if !errors.As(err, &mpe) {
		t.Fatalf("err = %v, want *MalformedPayloadError", err)
	}
}

func TestDecodeIOErrorPropagates(t *testing.T) {
	_, err := Codec{}.Decode(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestEncodeFirmwareCodeLengthMismatch(t *testing.T) {
	m := Message{Type: TypeFirmwareCode, FirmwareCode: &FirmwareCodeFields{Seq: 1, DestAddr: 1, NumBytes: 99, CodeChunk: []byte{1, 2}}}
	if _, err := (Codec{}).Encode(m); err == nil {
		t.Fatalf("expected error for NumBytes/CodeChunk mismatch")
	}
}

func TestContentMsgFlagBitsOnly(t *testing.T) {
	m := NewContentMsg(ContentMsgFields{CountImpressions: true, DisplayIndefinitely: true})
	frame, err := Codec{}.Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	flags := frame[3+3] // content_id(2)+channel(1) -> offset 3 is flags byte within payload; payload starts at frame[3]
	if flags&^0x3 != 0 {
		t.Fatalf("flags byte has reserved bits set: %08b", flags)
	}
	if flags&0x1 == 0 || flags&0x2 == 0 {
		t.Fatalf("expected both bits set, got %08b", flags)
	}
}
