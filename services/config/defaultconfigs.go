package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device profile (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON for that profile. Fields left out keep the built-in defaults.
// -----------------------------------------------------------------------------

// Galactic Unicorn style 53x11 APA102 matrix on a Raspberry Pi.
const cfgGalactic = `{
  "meter": {
    "url_solar": "http://shelly-solar.local/emeter/0",
    "url_grid": "http://shelly-grid.local/emeter/0",
    "timeout_s": 10,
    "max_retries": 3,
    "peak_solar": 3000,
    "worst_grid": 1000,
    "pulse_ms": 200,
    "led_pin": "GPIO17"
  },
  "wifi": {
    "command": "nmcli --ask device wifi connect {ssid}",
    "probe_addr": "shelly-grid.local:80",
    "link_timeout_s": 15
  },
  "display": {
    "width": 53,
    "height": 11,
    "text_scale": 1,
    "default_brightness": 0.5,
    "spi_port": "",
    "spi_hz": 4000000,
    "serpentine": true
  },
  "brightness": {
    "min_sensor": 50,
    "max_sensor": 400,
    "min_brightness": 0.2,
    "max_brightness": 0.7,
    "smoothing": 0.1,
    "i2c_bus": "1",
    "i2c_addr": 35
  },
  "loop": {
    "frame_s": 3,
    "tick_s": 0.1
  },
  "telemetry": {},
  "log": {
    "level": "info"
  }
}`

// Development profile: no hardware, meter served locally.
const cfgHost = `{
  "meter": {
    "url_solar": "http://127.0.0.1:8080/solar",
    "url_grid": "http://127.0.0.1:8080/grid",
    "timeout_s": 2
  },
  "wifi": {
    "command": "none"
  },
  "display": {
    "width": 53,
    "height": 11
  },
  "telemetry": {
    "broker": "tcp://127.0.0.1:1883",
    "topic": "solarmatrix"
  },
  "log": {
    "level": "debug"
  }
}`

var embeddedConfigs = map[string][]byte{
	"galactic": []byte(cfgGalactic),
	"host":     []byte(cfgHost),
}
