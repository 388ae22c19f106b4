package model

import (
	"strings"
	"unicode"
)

type AlertType int

const (
	AlertUnknown AlertType = iota
	AlertNoHelmet
	AlertNoSafetyGear
	AlertSlipFall
	AlertProximityViolation
	AlertSafetyVestMissing
	AlertUnauthorizedEntry
	AlertUnsafeProximity
	AlertLowLight
	AlertCameraOffline
	AlertSystemCheck
	AlertEquipmentCheck
)

type alertTypeInfo struct {
	name  string
	label string
	icon  string
}

var alertTypes = map[AlertType]alertTypeInfo{
	AlertNoHelmet:           {"NoHelmetDetected", "No Helmet Detected", "⛑️"},
	AlertNoSafetyGear:       {"NoSafetyGearsDetected", "No Safety Gear Detected", "🦺"},
	AlertSlipFall:           {"SlipFallDetected", "Slip/Fall Detected", "🚨"},
	AlertProximityViolation: {"ProximityViolation", "Proximity Violation", "⚠️"},
	AlertSafetyVestMissing:  {"SafetyVestMissing", "Safety Vest Missing", "🦺"},
	AlertUnauthorizedEntry:  {"UnauthorizedEntry", "Unauthorized Entry", "🚫"},
	AlertUnsafeProximity:    {"UnsafeProximity", "Unsafe Proximity", "⚠️"},
	AlertLowLight:           {"LowLightDetected", "Low Light Detected", "💡"},
	AlertCameraOffline:      {"CameraOffline", "Camera Offline", "📹"},
	AlertSystemCheck:        {"SystemCheck", "System Check", "✅"},
	AlertEquipmentCheck:     {"EquipmentCheck", "Equipment Check", "🔧"},
}

var alertTypesByName = func() map[string]AlertType {
	out := make(map[string]AlertType, len(alertTypes))
	for t, info := range alertTypes {
		out[info.name] = t
	}
	return out
}()

const fallbackIcon = "⚠️"

// ParseAlertType maps a wire type name to a known AlertType, or AlertUnknown.
func ParseAlertType(name string) AlertType {
	if t, ok := alertTypesByName[strings.TrimSpace(name)]; ok {
		return t
	}
	return AlertUnknown
}

func (t AlertType) String() string {
	if info, ok := alertTypes[t]; ok {
		return info.name
	}
	return "Unknown"
}

func (t AlertType) Icon() string {
	if info, ok := alertTypes[t]; ok {
		return info.icon
	}
	return fallbackIcon
}

// AlertLabel returns the display label for a wire type name. Unknown names
// are split on CamelCase boundaries.
func AlertLabel(name string) string {
	if info, ok := alertTypes[ParseAlertType(name)]; ok {
		return info.label
	}
	return splitCamel(strings.TrimSpace(name))
}

func AlertIcon(name string) string {
	return ParseAlertType(name).Icon()
}

func splitCamel(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && !unicode.IsUpper(runes[i-1]) && runes[i-1] != ' ' {
			b.WriteRune(' ')
		}
		if i == 0 {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
