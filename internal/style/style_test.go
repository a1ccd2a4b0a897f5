package style

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmbeddedPresets(t *testing.T) {
	set, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, name := range []string{"classic", "breeze", "meadow"} {
		st, err := set.Get(name)
		if err != nil {
			t.Fatalf("get %s: %v", name, err)
		}
		if st.Name != name {
			t.Fatalf("style name=%q want=%q", st.Name, name)
		}
	}
	def, err := set.Get("")
	if err != nil || def.Name != "breeze" {
		t.Fatalf("default style=%q err=%v, want breeze", def.Name, err)
	}
}

func TestClassicMatchesFirstVersion(t *testing.T) {
	set, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	st, _ := set.Get("classic")
	if st.Decay != DecayContinuous || st.DecayRate != 0.005 {
		t.Fatalf("classic decay=%s rate=%g", st.Decay, st.DecayRate)
	}
	if st.SpawnDivisor != 5 || st.VolumeThreshold != 10 || st.Drag != 1 || st.Gravity != 0 {
		t.Fatalf("classic constants drifted: %+v", st)
	}
}

func TestOverlayChangesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "styles.yaml")
	data := []byte("default: meadow\nstyles:\n  breeze:\n    gravity: 0.05\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	set, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if set.Default != "meadow" {
		t.Fatalf("default=%q want meadow", set.Default)
	}
	st, _ := set.Get("breeze")
	if st.Gravity != 0.05 {
		t.Fatalf("gravity=%g want 0.05", st.Gravity)
	}
	if st.Petals != 60 {
		t.Fatalf("petals=%d want untouched 60", st.Petals)
	}
}

func TestLoadRejectsInvalidStyle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("styles:\n  breeze:\n    spawn_divisor: 0\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for zero divisor")
	}
}

func TestGetUnknown(t *testing.T) {
	set, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := set.Get("tulip"); !errors.Is(err, ErrUnknownStyle) {
		t.Fatalf("expected ErrUnknownStyle, got %v", err)
	}
}

func TestNextWraps(t *testing.T) {
	set, _ := Load("")
	cases := map[string]string{
		"breeze":  "classic",
		"classic": "meadow",
		"meadow":  "breeze",
	}
	for current, want := range cases {
		if got := set.Next(current).Name; got != want {
			t.Fatalf("Next(%s)=%s want=%s", current, got, want)
		}
	}
}

func TestValidateColors(t *testing.T) {
	set, _ := Load("")
	st, _ := set.Get("breeze")
	st.Colors.Stem = "green"
	if err := st.Validate(); err == nil {
		t.Fatalf("expected bad hex color to fail validation")
	}
}
