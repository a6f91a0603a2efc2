package proto

// Message is the tagged union over every variant in the wire registry
// (§6.1). Type discriminates which of the pointer fields below is
// populated; variants with an empty wire payload (Reboot, ClearStopCfg,
// AckClearStopCfg, ResetCfgParams, AckResetCfgParams) carry no fields at
// all — Type alone is the whole message.
//
// This is a flat struct rather than an interface hierarchy on purpose: the
// tag dispatch in Encode/Decode is an exhaustive switch over Type, never a
// runtime type assertion.
type Message struct {
	Type MessageType

	AppRunning     *AppRunningFields
	Ping           *PingFields
	Pong           *PongFields
	StopCfg        *StopCfgFields
	AckStopCfg     *AckStopCfgFields
	SetCfgParam    *SetCfgParamFields
	AckSetCfgParam *AckSetCfgParamFields
	GetCfgParam    *GetCfgParamFields
	AckGetCfgParam *AckGetCfgParamFields
	SyncClock      *SyncClockFields
	DebugMsg       *DebugMsgFields
	FirmwareCode   *FirmwareCodeFields
	ContentMsg     *ContentMsgFields
	AckContent     *AckContentFields
	ContentDelete  *ContentDeleteFields
	AuthRequest    *AuthRequestFields
	AuthConfirm    *AuthConfirmFields
	ShellCommand   *ShellCommandFields
}

type AppRunningFields struct {
	SeqNum uint8
	Reason AppRunningReason
}

type PingFields struct {
	SeqNum uint8
}

type PongFields struct {
	SeqNum uint8
}

// StopCfgFields holds a stop's display configuration. Wire field order is
// NOT declaration order: stop_id, title_len, phoneme_len, title, phoneme,
// then the four u8n-prefixed trailing fields (§6.1 row 14, scenario 6).
type StopCfgFields struct {
	StopID            uint8
	Title             string
	Phoneme           string
	ZeroCountdownMsg  []byte
	RouteTag          []byte
	SndMD5            []byte
	SndURL            []byte
}

type AckStopCfgFields struct {
	StopID uint8
	Error  uint8
}

type SetCfgParamFields struct {
	Param uint8
	Value uint8
}

type AckSetCfgParamFields struct {
	Param uint8
	Error uint8
	Value uint8
}

type GetCfgParamFields struct {
	Param uint8
}

type AckGetCfgParamFields struct {
	Param uint8
	Error uint8
	Value uint8
}

type SyncClockFields struct {
	SeqNum     uint8
	EpochSec   uint32
	ZoneOffset uint8
	TZ         []byte
}

type DebugMsgFields struct {
	Text string
}

type FirmwareCodeFields struct {
	Seq       uint8
	DestAddr  uint16
	NumBytes  uint16
	CodeChunk []byte
}

// ContentPayload is one element of ContentMsg's ordered payload sequence.
type ContentPayload struct {
	Kind  PayloadKind
	Bytes []byte
}

type ContentMsgFields struct {
	ContentID            uint16
	Channel              uint8
	CountImpressions     bool
	DisplayIndefinitely  bool
	BookingID            uint16
	Priority             uint16
	Payloads             []ContentPayload
}

type AckContentFields struct {
	ContentID uint16
	Error     uint8
}

type ContentDeleteFields struct {
	ContentID uint16
}

type AuthRequestFields struct {
	Method uint8
}

// AuthConfirmFields.Address is exactly 4 bytes (§3.1).
type AuthConfirmFields struct {
	ConfCode uint8
	Address  [4]byte
	Port     uint16
}

type ShellCommandFields struct {
	CommandID uint8
	Command   string
}

func NewReboot() Message       { return Message{Type: TypeReboot} }
func NewClearStopCfg() Message { return Message{Type: TypeClearStopCfg} }
func NewAckClearStopCfg() Message { return Message{Type: TypeAckClearStopCfg} }
func NewResetCfgParams() Message    { return Message{Type: TypeResetCfgParams} }
func NewAckResetCfgParams() Message { return Message{Type: TypeAckResetCfgParams} }

func NewAppRunning(seqNum uint8, reason AppRunningReason) Message {
	return Message{Type: TypeAppRunning, AppRunning: &AppRunningFields{SeqNum: seqNum, Reason: reason}}
}

func NewPing(seqNum uint8) Message {
	return Message{Type: TypePing, Ping: &PingFields{SeqNum: seqNum}}
}

func NewPong(seqNum uint8) Message {
	return Message{Type: TypePong, Pong: &PongFields{SeqNum: seqNum}}
}

func NewStopCfg(f StopCfgFields) Message {
	return Message{Type: TypeStopCfg, StopCfg: &f}
}

func NewAckStopCfg(stopID, errCode uint8) Message {
	return Message{Type: TypeAckStopCfg, AckStopCfg: &AckStopCfgFields{StopID: stopID, Error: errCode}}
}

func NewSetCfgParam(param, value uint8) Message {
	return Message{Type: TypeSetCfgParam, SetCfgParam: &SetCfgParamFields{Param: param, Value: value}}
}

func NewAckSetCfgParam(param, errCode, value uint8) Message {
	return Message{Type: TypeAckSetCfgParam, AckSetCfgParam: &AckSetCfgParamFields{Param: param, Error: errCode, Value: value}}
}

func NewGetCfgParam(param uint8) Message {
	return Message{Type: TypeGetCfgParam, GetCfgParam: &GetCfgParamFields{Param: param}}
}

func NewAckGetCfgParam(param, errCode, value uint8) Message {
	return Message{Type: TypeAckGetCfgParam, AckGetCfgParam: &AckGetCfgParamFields{Param: param, Error: errCode, Value: value}}
}

func NewSyncClock(seqNum uint8, epochSec uint32, zoneOffset uint8, tz []byte) Message {
	return Message{Type: TypeSyncClock, SyncClock: &SyncClockFields{SeqNum: seqNum, EpochSec: epochSec, ZoneOffset: zoneOffset, TZ: tz}}
}

func NewDebugMsg(text string) Message {
	return Message{Type: TypeDebugMsg, DebugMsg: &DebugMsgFields{Text: text}}
}

func NewFirmwareCode(seq uint8, destAddr uint16, codeChunk []byte) Message {
	return Message{Type: TypeFirmwareCode, FirmwareCode: &FirmwareCodeFields{
		Seq: seq, DestAddr: destAddr, NumBytes: uint16(len(codeChunk)), CodeChunk: codeChunk,
	}}
}

func NewContentMsg(f ContentMsgFields) Message {
	return Message{Type: TypeContentMsg, ContentMsg: &f}
}

func NewAckContent(contentID uint16, errCode uint8) Message {
	return Message{Type: TypeAckContent, AckContent: &AckContentFields{ContentID: contentID, Error: errCode}}
}

func NewContentDelete(contentID uint16) Message {
	return Message{Type: TypeContentDelete, ContentDelete: &ContentDeleteFields{ContentID: contentID}}
}

func NewAuthRequest(method uint8) Message {
	return Message{Type: TypeAuthRequest, AuthRequest: &AuthRequestFields{Method: method}}
}

func NewAuthConfirm(confCode uint8, address [4]byte, port uint16) Message {
	return Message{Type: TypeAuthConfirm, AuthConfirm: &AuthConfirmFields{ConfCode: confCode, Address: address, Port: port}}
}

func NewShellCommand(commandID uint8, command string) Message {
	return Message{Type: TypeShellCommand, ShellCommand: &ShellCommandFields{CommandID: commandID, Command: command}}
}
