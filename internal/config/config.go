// Package config loads go-drowsy settings from the environment.
//
// A .env file in the working directory is read first if present. Command-line
// flags in cmd/ override these values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/actuator"
	"github.com/teslashibe/go-drowsy/pkg/camera"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
)

// Default model locations, relative to the working directory.
const (
	DefaultFaceModel     = "models/face_detection_yunet_2023mar.onnx"
	DefaultLandmarkModel = "models/face_landmarks_68.onnx"
	DefaultPort          = 8090
	DefaultDBPath        = "drowsy.db"
)

// Config is the full application configuration.
type Config struct {
	Drowsiness drowsiness.Config
	Actuator   actuator.Config
	Camera     camera.Config

	FaceModel     string
	LandmarkModel string

	Port        int
	DBPath      string // Empty disables the alert history
	LogLevel    string
	Environment string
}

// Load reads .env (if any) and the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using environment", "error", err)
	}

	d := drowsiness.DefaultConfig()
	d.EARThreshold = getEnvFloat("DROWSY_EAR_THRESHOLD", d.EARThreshold)
	d.EyeFrames = getEnvInt("DROWSY_EYE_FRAMES", d.EyeFrames)
	d.YawnThreshold = getEnvFloat("DROWSY_YAWN_THRESHOLD", d.YawnThreshold)
	d.YawnFrames = getEnvInt("DROWSY_YAWN_FRAMES", d.YawnFrames)
	d.SmoothingWindow = getEnvInt("DROWSY_SMOOTHING", d.SmoothingWindow)

	a := actuator.DefaultConfig()
	a.Driver = getEnv("DROWSY_ACTUATOR", a.Driver)
	a.Pin = getEnv("DROWSY_GPIO_PIN", a.Pin)
	a.YawnPin = getEnv("DROWSY_YAWN_PIN", a.YawnPin)
	a.Duration = getEnvDuration("DROWSY_PULSE", a.Duration)
	if cmd := strings.Fields(os.Getenv("DROWSY_ALERT_COMMAND")); len(cmd) > 0 {
		a.Command = cmd
	}
	a.URL = getEnv("DROWSY_ALERT_URL", a.URL)
	a.QueueSize = getEnvInt("DROWSY_ALERT_QUEUE", a.QueueSize)

	c := camera.DefaultConfig()
	if preset := camera.GetPreset(os.Getenv("DROWSY_CAMERA_PRESET")); preset != nil {
		c = *preset
	}
	c.Device = getEnv("DROWSY_CAMERA", c.Device)
	c.Width = getEnvInt("DROWSY_WIDTH", c.Width)
	c.Mirror = getEnvBool("DROWSY_MIRROR", c.Mirror)

	return &Config{
		Drowsiness:    d,
		Actuator:      a,
		Camera:        c,
		FaceModel:     getEnv("DROWSY_FACE_MODEL", DefaultFaceModel),
		LandmarkModel: getEnv("DROWSY_LANDMARK_MODEL", DefaultLandmarkModel),
		Port:          getEnvInt("DROWSY_PORT", DefaultPort),
		DBPath:        getEnv("DROWSY_DB", DefaultDBPath),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Environment:   getEnv("GO_ENV", "development"),
	}
}

// Validate checks every section. Returns a list of validation errors, or nil
// if valid.
func (c *Config) Validate() []string {
	var errors []string

	for _, e := range c.Drowsiness.Validate() {
		errors = append(errors, "drowsiness: "+e)
	}
	for _, e := range c.Actuator.Validate() {
		errors = append(errors, "actuator: "+e)
	}
	for _, e := range c.Camera.Validate() {
		errors = append(errors, "camera: "+e)
	}
	if c.Port < 0 || c.Port > 65535 {
		errors = append(errors, fmt.Sprintf("port %d out of range (0 disables the dashboard)", c.Port))
	}

	return errors
}

// IsProduction reports whether GO_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if intVal, err := strconv.Atoi(v); err == nil {
			return intVal
		}
		log.Warn("ignoring invalid integer", "key", key, "value", v)
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Warn("ignoring invalid number", "key", key, "value", v)
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Warn("ignoring invalid bool", "key", key, "value", v)
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("5s") or bare seconds ("5").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	log.Warn("ignoring invalid duration", "key", key, "value", v)
	return defaultVal
}
