package casambi

import (
	"fmt"
	"math"
)

// TargetControls is the targetControls payload of a controlUnit message,
// keyed by control type.
type TargetControls map[string]map[string]any

// TargetDimmer builds a brightness target. Level must be within [0, 1].
func TargetDimmer(level float64) (TargetControls, error) {
	if level < 0 || level > 1 {
		return nil, fmt.Errorf("dimmer level %v out of range [0, 1]", level)
	}
	return TargetControls{
		ControlDimmer: {"value": level},
	}, nil
}

// TargetColorTemperature builds a tunable-white target for a kelvin value
// that has already been rounded and clamped.
func TargetColorTemperature(kelvin int) TargetControls {
	return TargetControls{
		ControlColorTemperature: {"value": kelvin},
		ControlColorsource:      {"source": "TW"},
	}
}

// TargetRGB builds a color target. With sendRGBFormat the raw channel
// values are sent as an "rgb(r, g, b)" string, otherwise as hue/sat.
func TargetRGB(r, g, b uint8, sendRGBFormat bool) TargetControls {
	if sendRGBFormat {
		return TargetControls{
			ControlRGB: {"rgb": fmt.Sprintf("rgb(%d, %d, %d)", r, g, b)},
		}
	}
	hue, sat := rgbToHueSat(r, g, b)
	return TargetControls{
		ControlRGB: {"hue": hue, "sat": sat},
	}
}

// TargetRGBW builds a color target with a separate white channel. The
// white value is normalized to [0, 1] on the wire.
func TargetRGBW(r, g, b, w uint8, sendRGBFormat bool) TargetControls {
	tc := TargetRGB(r, g, b, sendRGBFormat)
	tc[ControlWhite] = map[string]any{"value": float64(w) / 255.0}
	tc[ControlColorsource] = map[string]any{"source": "RGB"}
	return tc
}

// rgbToHueSat converts RGB channels to the hue (0..1, rounded to two
// decimals) and saturation the hue/sat wire form expects.
func rgbToHueSat(r, g, b uint8) (hue, sat float64) {
	rf, gf, bf := float64(r)/255.0, float64(g)/255.0, float64(b)/255.0

	max := math.Max(rf, math.Max(gf, bf))
	min := math.Min(rf, math.Min(gf, bf))
	delta := max - min

	if delta > 0 {
		switch max {
		case rf:
			hue = math.Mod((gf-bf)/delta, 6)
		case gf:
			hue = (bf-rf)/delta + 2
		default:
			hue = (rf-gf)/delta + 4
		}
		hue /= 6
		if hue < 0 {
			hue++
		}
	}
	if max > 0 {
		sat = delta / max
	}

	return math.Round(hue*100) / 100, sat
}

// RoundKelvin rounds a color temperature up to the next multiple of
// 50 K, matching what the vendor GUI sends.
func RoundKelvin(kelvin int) int {
	if kelvin%50 == 0 {
		return kelvin
	}
	return kelvin/50*50 + 50
}

// KelvinFromMired converts a mired value to kelvin (K = 1e6 / M).
func KelvinFromMired(mired int) int {
	if mired <= 0 {
		return 0
	}
	return int(math.Round(1000000 / float64(mired)))
}

// MiredFromKelvin converts a kelvin value to mireds (M = 1e6 / K).
func MiredFromKelvin(kelvin float64) int {
	if kelvin <= 0 {
		return 0
	}
	return int(math.Round(1000000 / kelvin))
}

// clampKelvin limits a kelvin target to the supported CCT range. A zero
// range (unsupported) passes the value through untouched.
func clampKelvin(kelvin, min, max int) int {
	if min == 0 && max == 0 {
		return kelvin
	}
	if kelvin < min {
		return min
	}
	if kelvin > max {
		return max
	}
	return kelvin
}
