package casambi

import "testing"

func TestRoundKelvin(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{2700, 2700},
		{2701, 2750},
		{2749, 2750},
		{2750, 2750},
		{3333, 3350},
		{0, 0},
	}
	for _, tt := range tests {
		if got := RoundKelvin(tt.in); got != tt.want {
			t.Errorf("RoundKelvin(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMiredKelvinConversion(t *testing.T) {
	if got := KelvinFromMired(370); got != 2703 {
		t.Errorf("KelvinFromMired(370) = %d, want 2703", got)
	}
	if got := MiredFromKelvin(2700); got != 370 {
		t.Errorf("MiredFromKelvin(2700) = %d, want 370", got)
	}
	if got := KelvinFromMired(0); got != 0 {
		t.Errorf("KelvinFromMired(0) = %d, want 0", got)
	}
	if got := MiredFromKelvin(-1); got != 0 {
		t.Errorf("MiredFromKelvin(-1) = %d, want 0", got)
	}
}

func TestClampKelvin(t *testing.T) {
	if got := clampKelvin(2000, 2700, 4000); got != 2700 {
		t.Errorf("clamp below min = %d, want 2700", got)
	}
	if got := clampKelvin(5000, 2700, 4000); got != 4000 {
		t.Errorf("clamp above max = %d, want 4000", got)
	}
	if got := clampKelvin(3000, 2700, 4000); got != 3000 {
		t.Errorf("clamp in range = %d, want 3000", got)
	}
	// Zero range means the fixture advertised no CCT bounds
	if got := clampKelvin(9000, 0, 0); got != 9000 {
		t.Errorf("clamp without range = %d, want 9000", got)
	}
}

func TestTargetDimmer(t *testing.T) {
	tc, err := TargetDimmer(0.5)
	if err != nil {
		t.Fatalf("TargetDimmer(0.5) returned error: %v", err)
	}
	if tc[ControlDimmer]["value"] != 0.5 {
		t.Errorf("dimmer value = %v, want 0.5", tc[ControlDimmer]["value"])
	}

	if _, err := TargetDimmer(1.5); err == nil {
		t.Error("TargetDimmer(1.5) should fail")
	}
	if _, err := TargetDimmer(-0.1); err == nil {
		t.Error("TargetDimmer(-0.1) should fail")
	}
}

func TestTargetColorTemperature(t *testing.T) {
	tc := TargetColorTemperature(3000)
	if tc[ControlColorTemperature]["value"] != 3000 {
		t.Errorf("cct value = %v, want 3000", tc[ControlColorTemperature]["value"])
	}
	if tc[ControlColorsource]["source"] != "TW" {
		t.Errorf("colorsource = %v, want TW", tc[ControlColorsource]["source"])
	}
}

func TestTargetRGB_RGBFormat(t *testing.T) {
	tc := TargetRGB(255, 128, 0, true)
	if tc[ControlRGB]["rgb"] != "rgb(255, 128, 0)" {
		t.Errorf("rgb = %v, want rgb(255, 128, 0)", tc[ControlRGB]["rgb"])
	}
}

func TestTargetRGB_HueSat(t *testing.T) {
	tc := TargetRGB(255, 0, 0, false)
	if tc[ControlRGB]["hue"] != 0.0 {
		t.Errorf("hue for red = %v, want 0", tc[ControlRGB]["hue"])
	}
	if tc[ControlRGB]["sat"] != 1.0 {
		t.Errorf("sat for red = %v, want 1", tc[ControlRGB]["sat"])
	}

	// Green sits a third around the wheel
	tc = TargetRGB(0, 255, 0, false)
	if tc[ControlRGB]["hue"] != 0.33 {
		t.Errorf("hue for green = %v, want 0.33", tc[ControlRGB]["hue"])
	}
}

func TestTargetRGBW(t *testing.T) {
	tc := TargetRGBW(10, 20, 30, 255, true)
	if tc[ControlWhite]["value"] != 1.0 {
		t.Errorf("white value = %v, want 1", tc[ControlWhite]["value"])
	}
	if tc[ControlColorsource]["source"] != "RGB" {
		t.Errorf("colorsource = %v, want RGB", tc[ControlColorsource]["source"])
	}
	if tc[ControlRGB]["rgb"] != "rgb(10, 20, 30)" {
		t.Errorf("rgb = %v, want rgb(10, 20, 30)", tc[ControlRGB]["rgb"])
	}
}
