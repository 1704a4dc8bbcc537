package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg := Load()

	if cfg.Drowsiness.EARThreshold != 0.25 {
		t.Errorf("EARThreshold: got %v, want 0.25", cfg.Drowsiness.EARThreshold)
	}
	if cfg.Drowsiness.EyeFrames != 20 {
		t.Errorf("EyeFrames: got %d, want 20", cfg.Drowsiness.EyeFrames)
	}
	if cfg.Drowsiness.YawnThreshold != 25 {
		t.Errorf("YawnThreshold: got %v, want 25", cfg.Drowsiness.YawnThreshold)
	}
	if cfg.Drowsiness.YawnFrames != 10 {
		t.Errorf("YawnFrames: got %d, want 10", cfg.Drowsiness.YawnFrames)
	}
	if cfg.Drowsiness.SmoothingWindow != 5 {
		t.Errorf("SmoothingWindow: got %d, want 5", cfg.Drowsiness.SmoothingWindow)
	}
	if cfg.Camera.Width != 450 {
		t.Errorf("Camera.Width: got %d, want 450", cfg.Camera.Width)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port: got %d, want %d", cfg.Port, DefaultPort)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("defaults should be valid, got %v", errs)
	}
}

func TestLoadFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DROWSY_EAR_THRESHOLD", "0.22")
	t.Setenv("DROWSY_EYE_FRAMES", "15")
	t.Setenv("DROWSY_YAWN_THRESHOLD", "30")
	t.Setenv("DROWSY_YAWN_FRAMES", "8")
	t.Setenv("DROWSY_SMOOTHING", "3")
	t.Setenv("DROWSY_ACTUATOR", "gpio")
	t.Setenv("DROWSY_GPIO_PIN", "GPIO17")
	t.Setenv("DROWSY_PULSE", "2s")
	t.Setenv("DROWSY_ALERT_COMMAND", "python3 alert_sys_v1.py")
	t.Setenv("DROWSY_CAMERA", "/dev/video1")
	t.Setenv("DROWSY_PORT", "9000")

	cfg := Load()

	if cfg.Drowsiness.EARThreshold != 0.22 {
		t.Errorf("EARThreshold: got %v, want 0.22", cfg.Drowsiness.EARThreshold)
	}
	if cfg.Drowsiness.EyeFrames != 15 || cfg.Drowsiness.YawnFrames != 8 {
		t.Errorf("frames: got %d/%d, want 15/8", cfg.Drowsiness.EyeFrames, cfg.Drowsiness.YawnFrames)
	}
	if cfg.Drowsiness.YawnThreshold != 30 || cfg.Drowsiness.SmoothingWindow != 3 {
		t.Errorf("yawn/smoothing: got %v/%d", cfg.Drowsiness.YawnThreshold, cfg.Drowsiness.SmoothingWindow)
	}
	if cfg.Actuator.Driver != "gpio" || cfg.Actuator.Pin != "GPIO17" {
		t.Errorf("actuator: got %s/%s", cfg.Actuator.Driver, cfg.Actuator.Pin)
	}
	if cfg.Actuator.Duration != 2*time.Second {
		t.Errorf("Duration: got %v, want 2s", cfg.Actuator.Duration)
	}
	if len(cfg.Actuator.Command) != 2 || cfg.Actuator.Command[1] != "alert_sys_v1.py" {
		t.Errorf("Command: got %v", cfg.Actuator.Command)
	}
	if cfg.Camera.Device != "/dev/video1" {
		t.Errorf("Device: got %q", cfg.Camera.Device)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port: got %d, want 9000", cfg.Port)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DROWSY_YAWN_FRAMES=12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override, and t.Setenv restores the variable afterwards.
	t.Setenv("DROWSY_YAWN_FRAMES", "")
	os.Unsetenv("DROWSY_YAWN_FRAMES")

	cfg := Load()
	if cfg.Drowsiness.YawnFrames != 12 {
		t.Errorf("YawnFrames: got %d, want 12", cfg.Drowsiness.YawnFrames)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DROWSY_EYE_FRAMES", "twenty")
	t.Setenv("DROWSY_EAR_THRESHOLD", "low")
	t.Setenv("DROWSY_PULSE", "soon")
	t.Setenv("DROWSY_MIRROR", "maybe")

	cfg := Load()
	if cfg.Drowsiness.EyeFrames != 20 {
		t.Errorf("EyeFrames: got %d, want 20", cfg.Drowsiness.EyeFrames)
	}
	if cfg.Drowsiness.EARThreshold != 0.25 {
		t.Errorf("EARThreshold: got %v, want 0.25", cfg.Drowsiness.EARThreshold)
	}
	if cfg.Actuator.Duration != 5*time.Second {
		t.Errorf("Duration: got %v, want 5s", cfg.Actuator.Duration)
	}
	if cfg.Camera.Mirror {
		t.Error("Mirror should stay false")
	}
}

func TestGetEnvDurationSeconds(t *testing.T) {
	t.Setenv("X_PULSE", "1.5")
	if got := getEnvDuration("X_PULSE", 0); got != 1500*time.Millisecond {
		t.Errorf("getEnvDuration: got %v, want 1.5s", got)
	}
}

func TestValidatePrefixes(t *testing.T) {
	chdir(t, t.TempDir())
	cfg := Load()
	cfg.Drowsiness.EyeFrames = 0
	cfg.Actuator.Driver = "siren"
	cfg.Port = 70000

	errs := cfg.Validate()
	if len(errs) != 3 {
		t.Fatalf("Validate: got %d errors (%v), want 3", len(errs), errs)
	}
	if errs[0][:11] != "drowsiness:" {
		t.Errorf("first error: got %q, want drowsiness prefix", errs[0])
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
