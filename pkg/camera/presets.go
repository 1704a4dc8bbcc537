package camera

// Preset names for common configurations
const (
	PresetDefault  = "default"
	PresetPi       = "pi"
	PresetHD       = "hd"
	PresetLowPower = "lowpower"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault:  DefaultConfig(),
		PresetPi:       PiConfig(),
		PresetHD:       HDConfig(),
		PresetLowPower: LowPowerConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{PresetDefault, PresetPi, PresetHD, PresetLowPower}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// PiConfig asks a Raspberry Pi camera for 640x480 at 15 FPS, which keeps
// landmark inference close to real time on a Pi 4.
func PiConfig() Config {
	cfg := DefaultConfig()
	cfg.CaptureWidth = 640
	cfg.CaptureHeight = 480
	cfg.Framerate = 15
	return cfg
}

// HDConfig captures 720p and mirrors the preview, for desk testing with a webcam.
func HDConfig() Config {
	cfg := DefaultConfig()
	cfg.CaptureWidth = 1280
	cfg.CaptureHeight = 720
	cfg.Framerate = 30
	cfg.Mirror = true
	return cfg
}

// LowPowerConfig trades accuracy for CPU.
// Thresholds tuned at 450px should be re-checked at this width.
func LowPowerConfig() Config {
	cfg := PiConfig()
	cfg.Width = 320
	cfg.Framerate = 10
	cfg.Quality = 50
	return cfg
}
