// Package proto implements the NextBus sign wire protocol: a framed,
// checksummed, tagged-union message codec. It has no knowledge of sockets —
// Decode and Encode operate on any io.Reader/io.Writer.
package proto

// MessageType is the single byte that discriminates frames on the wire.
type MessageType uint8

const (
	TypeReboot            MessageType = 6
	TypeAppRunning        MessageType = 8
	TypePing              MessageType = 10
	TypePong              MessageType = 11
	TypeStopCfg           MessageType = 14
	TypeAckStopCfg        MessageType = 15
	TypeClearStopCfg      MessageType = 16
	TypeAckClearStopCfg   MessageType = 17
	TypeSetCfgParam       MessageType = 18
	TypeAckSetCfgParam    MessageType = 19
	TypeGetCfgParam       MessageType = 20
	TypeAckGetCfgParam    MessageType = 21
	TypeResetCfgParams    MessageType = 22
	TypeAckResetCfgParams MessageType = 23
	TypeSyncClock         MessageType = 26
	TypeDebugMsg          MessageType = 28
	TypeFirmwareCode      MessageType = 31
	TypeContentMsg        MessageType = 32
	TypeAckContent        MessageType = 33
	TypeContentDelete     MessageType = 36
	TypeAuthRequest       MessageType = 50
	TypeAuthConfirm       MessageType = 52
	TypeShellCommand      MessageType = 80
)

func (t MessageType) String() string {
	switch t {
	case TypeReboot:
		return "Reboot"
	case TypeAppRunning:
		return "AppRunning"
	case TypePing:
		return "Ping"
	case TypePong:
		return "Pong"
	case TypeStopCfg:
		return "StopCfg"
	case TypeAckStopCfg:
		return "AckStopCfg"
	case TypeClearStopCfg:
		return "ClearStopCfg"
	case TypeAckClearStopCfg:
		return "AckClearStopCfg"
	case TypeSetCfgParam:
		return "SetCfgParam"
	case TypeAckSetCfgParam:
		return "AckSetCfgParam"
	case TypeGetCfgParam:
		return "GetCfgParam"
	case TypeAckGetCfgParam:
		return "AckGetCfgParam"
	case TypeResetCfgParams:
		return "ResetCfgParams"
	case TypeAckResetCfgParams:
		return "AckResetCfgParams"
	case TypeSyncClock:
		return "SyncClock"
	case TypeDebugMsg:
		return "DebugMsg"
	case TypeFirmwareCode:
		return "FirmwareCode"
	case TypeContentMsg:
		return "ContentMsg"
	case TypeAckContent:
		return "AckContent"
	case TypeContentDelete:
		return "ContentDelete"
	case TypeAuthRequest:
		return "AuthRequest"
	case TypeAuthConfirm:
		return "AuthConfirm"
	case TypeShellCommand:
		return "ShellCommand"
	default:
		return "Unknown"
	}
}

// PayloadKind enumerates the sub-payload kinds carried inside a ContentMsg.
// Unlike AppRunningReason, an out-of-range kind is a decode error (§6.2) —
// there is no catch-all "unknown" bucket.
type PayloadKind uint8

const (
	PayloadMsg           PayloadKind = 0
	PayloadPhoneme       PayloadKind = 1
	PayloadBitmap        PayloadKind = 2
	PayloadSoundURL      PayloadKind = 3
	PayloadSoundChecksum PayloadKind = 4
	PayloadRouteTags     PayloadKind = 5
)

func (k PayloadKind) valid() bool {
	return k <= PayloadRouteTags
}

func (k PayloadKind) String() string {
	switch k {
	case PayloadMsg:
		return "Msg"
	case PayloadPhoneme:
		return "Phoneme"
	case PayloadBitmap:
		return "Bitmap"
	case PayloadSoundURL:
		return "SoundURL"
	case PayloadSoundChecksum:
		return "SoundChecksum"
	case PayloadRouteTags:
		return "RouteTags"
	default:
		return "Invalid"
	}
}

// AppRunningReason enumerates the reason code a sign reports in an
// AppRunning message. The wire byte is preserved verbatim through
// decode/encode; String() only affects presentation, so a reason value
// outside the named set still round-trips exactly (it just prints as
// "Unknown").
type AppRunningReason uint8

const (
	ReasonUndiscernable     AppRunningReason = 0
	ReasonPowerup           AppRunningReason = 1
	ReasonWatchdog          AppRunningReason = 2
	ReasonServerOrder       AppRunningReason = 3
	ReasonNewFirmware       AppRunningReason = 4
	ReasonNoServerContact   AppRunningReason = 5
	ReasonRedirected        AppRunningReason = 6
	ReasonDroppedConnection AppRunningReason = 7
	ReasonBadAuthentication AppRunningReason = 8
	ReasonFatalError        AppRunningReason = 9
)

func (r AppRunningReason) String() string {
	switch r {
	case ReasonUndiscernable:
		return "Undiscernable"
	case ReasonPowerup:
		return "Powerup"
	case ReasonWatchdog:
		return "Watchdog"
	case ReasonServerOrder:
		return "ServerOrder"
	case ReasonNewFirmware:
		return "NewFirmware"
	case ReasonNoServerContact:
		return "NoServerContact"
	case ReasonRedirected:
		return "Redirected"
	case ReasonDroppedConnection:
		return "DroppedConnection"
	case ReasonBadAuthentication:
		return "BadAuthentication"
	case ReasonFatalError:
		return "FatalError"
	default:
		return "Unknown"
	}
}
