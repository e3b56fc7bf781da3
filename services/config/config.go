package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"solarmatrix-go/bus"
	"solarmatrix-go/errcode"
	"solarmatrix-go/types"
	"solarmatrix-go/x/logx"
	"solarmatrix-go/x/strx"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

// Environment overrides for secrets that do not belong in the binary.
const (
	EnvMeterUser     = "SOLARMATRIX_METER_USER"
	EnvMeterPassword = "SOLARMATRIX_METER_PASSWORD"
	EnvWiFiSSID      = "SOLARMATRIX_WIFI_SSID"
	EnvWiFiPSK       = "SOLARMATRIX_WIFI_PSK"
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Defaults returns the configuration used for any field a profile leaves out.
func Defaults() types.Config {
	return types.Config{
		Meter: types.MeterConfig{
			TimeoutS:   10,
			MaxRetries: 3,
			PeakSolar:  3000,
			WorstGrid:  1000,
			PulseMs:    200,
		},
		WiFi: types.WiFiConfig{
			LinkTimeoutS: 15,
		},
		Display: types.DisplayConfig{
			Width:             53,
			Height:            11,
			TextScale:         1,
			DefaultBrightness: 0.5,
		},
		Brightness: types.BrightnessConfig{
			MinSensor:     50,
			MaxSensor:     400,
			MinBrightness: 0.2,
			MaxBrightness: 0.7,
			Smoothing:     0.1,
		},
		Loop: types.LoopConfig{FrameS: 3, TickS: 0.1},
		Log:  types.LogConfig{Level: "info"},
	}
}

// Load resolves the embedded profile for device and applies environment overrides.
func Load(device string) (types.Config, error) {
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return types.Config{}, &errcode.E{C: errcode.InvalidConfig, Op: "config", Msg: "no embedded config for device: " + device}
	}
	cfg, err := Parse(raw)
	if err != nil {
		return types.Config{}, err
	}
	applyEnv(&cfg, os.LookupEnv)
	return cfg, Validate(cfg)
}

// Parse decodes raw over Defaults. Unknown fields are rejected.
func Parse(raw []byte) (types.Config, error) {
	cfg := Defaults()
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return types.Config{}, errcode.Wrap(errcode.InvalidConfig, "config", err)
	}
	return cfg, nil
}

func applyEnv(cfg *types.Config, lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	set(&cfg.Meter.Username, EnvMeterUser)
	set(&cfg.Meter.Password, EnvMeterPassword)
	set(&cfg.WiFi.SSID, EnvWiFiSSID)
	set(&cfg.WiFi.PSK, EnvWiFiPSK)
}

// Validate reports the first setting that cannot work.
func Validate(cfg types.Config) error {
	bad := func(msg string) error {
		return &errcode.E{C: errcode.InvalidConfig, Op: "config", Msg: msg}
	}
	switch {
	case cfg.Meter.URLSolar == "" || cfg.Meter.URLGrid == "":
		return bad("meter urls are required")
	case cfg.Meter.MaxRetries < 1:
		return bad("meter.max_retries must be >= 1")
	case cfg.Display.Width < 4 || cfg.Display.Height < 1:
		return bad(fmt.Sprintf("display %dx%d too small", cfg.Display.Width, cfg.Display.Height))
	case cfg.Loop.TickS <= 0 || cfg.Loop.FrameS < cfg.Loop.TickS:
		return bad("loop.frame_s must be >= loop.tick_s > 0")
	case cfg.Brightness.MaxSensor <= cfg.Brightness.MinSensor:
		return bad("brightness.max_sensor must exceed min_sensor")
	}
	return nil
}

// Sections splits cfg into the retained messages published under config/.
// Secrets are redacted.
func Sections(cfg types.Config) map[string]any {
	m := cfg.Meter
	m.Password = strx.Mask(m.Password)
	w := cfg.WiFi
	w.PSK = strx.Mask(w.PSK)
	return map[string]any{
		"meter":      m,
		"wifi":       w,
		"display":    cfg.Display,
		"brightness": cfg.Brightness,
		"loop":       cfg.Loop,
		"telemetry":  cfg.Telemetry,
		"log":        cfg.Log,
	}
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
	log  *logx.Logger
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName, log: logx.New(serviceName)}
}

// publishConfig loads the device config and publishes each section retained.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errors.New("missing device ID in context")
	}
	cfg, err := Load(device)
	if err != nil {
		return err
	}
	for k, v := range Sections(cfg) {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			s.log.Errorf("publish: %v", err)
		}
	}()
}
