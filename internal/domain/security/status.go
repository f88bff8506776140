package security

import (
	"errors"
	"fmt"
	"strings"
)

// ArmingStatus is the operator-selected mode of the system.
type ArmingStatus string

const (
	// ArmingDisarmed means sensor activity is not monitored.
	ArmingDisarmed ArmingStatus = "DISARMED"
	// ArmingArmedHome means the system is armed while people are at home.
	ArmingArmedHome ArmingStatus = "ARMED_HOME"
	// ArmingArmedAway means the system is armed while the house is empty.
	ArmingArmedAway ArmingStatus = "ARMED_AWAY"
)

// AlarmStatus is the escalation level derived by the state machine.
type AlarmStatus string

const (
	// AlarmNone means nothing suspicious happened.
	AlarmNone AlarmStatus = "NO_ALARM"
	// AlarmPending means a single trigger was observed while armed.
	AlarmPending AlarmStatus = "PENDING_ALARM"
	// AlarmActive means the alarm is sounding.
	AlarmActive AlarmStatus = "ALARM"
)

var (
	// ErrUnknownArmingStatus is returned when a textual arming status cannot be parsed.
	ErrUnknownArmingStatus = errors.New("unknown arming status")
	// ErrUnknownAlarmStatus is returned when a textual alarm status cannot be parsed.
	ErrUnknownAlarmStatus = errors.New("unknown alarm status")
)

// String implements fmt.Stringer.
func (s ArmingStatus) String() string {
	return string(s)
}

// IsArmed reports whether sensor activity is monitored in this mode.
func (s ArmingStatus) IsArmed() bool {
	return s == ArmingArmedHome || s == ArmingArmedAway
}

// String implements fmt.Stringer.
func (s AlarmStatus) String() string {
	return string(s)
}

// Escalate returns the next alarm level. ALARM is the ceiling.
func (s AlarmStatus) Escalate() AlarmStatus {
	switch s {
	case AlarmNone:
		return AlarmPending
	default:
		return AlarmActive
	}
}

// ParseArmingStatus converts user input into an ArmingStatus.
// Matching is case-insensitive and accepts dashes in place of underscores.
func ParseArmingStatus(s string) (ArmingStatus, error) {
	switch status := ArmingStatus(normalize(s)); status {
	case ArmingDisarmed, ArmingArmedHome, ArmingArmedAway:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownArmingStatus, s)
	}
}

// ParseAlarmStatus converts user input into an AlarmStatus.
func ParseAlarmStatus(s string) (AlarmStatus, error) {
	switch status := AlarmStatus(normalize(s)); status {
	case AlarmNone, AlarmPending, AlarmActive:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlarmStatus, s)
	}
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_")
}
