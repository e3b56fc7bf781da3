package types

// Configuration sections, published retained on "config/<section>".

type Config struct {
	Meter      MeterConfig      `json:"meter"`
	WiFi       WiFiConfig       `json:"wifi"`
	Display    DisplayConfig    `json:"display"`
	Brightness BrightnessConfig `json:"brightness"`
	Loop       LoopConfig       `json:"loop"`
	Telemetry  TelemetryConfig  `json:"telemetry"`
	Log        LogConfig        `json:"log"`
}

type MeterConfig struct {
	URLSolar   string  `json:"url_solar"`
	URLGrid    string  `json:"url_grid"`
	Username   string  `json:"username"`
	Password   string  `json:"password"`
	TimeoutS   float64 `json:"timeout_s"`   // per request, default 10
	MaxRetries int     `json:"max_retries"` // default 3
	PeakSolar  float64 `json:"peak_solar"`  // W, default 3000
	WorstGrid  float64 `json:"worst_grid"`  // W, default 1000
	PulseMs    int     `json:"pulse_ms"`    // liveness blink, default 200
	LEDPin     string  `json:"led_pin,omitempty"`
}

type WiFiConfig struct {
	SSID    string `json:"ssid"`
	PSK     string `json:"psk"`
	Country string `json:"country,omitempty"`
	// Command is a shell-style template; {ssid} and {psk} are substituted per argument.
	Command string `json:"command"`
	// ProbeAddr is dialled after reconnecting to confirm the link is usable.
	ProbeAddr     string  `json:"probe_addr,omitempty"`
	LinkTimeoutS  float64 `json:"link_timeout_s"`
	RebootCommand string  `json:"reboot_command,omitempty"`
}

type DisplayConfig struct {
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	TextScale         int     `json:"text_scale"`
	DefaultBrightness float64 `json:"default_brightness"`
	SPIPort           string  `json:"spi_port,omitempty"`
	SPIHz             int64   `json:"spi_hz,omitempty"`
	Serpentine        bool    `json:"serpentine"`
}

type BrightnessConfig struct {
	MinSensor     float64 `json:"min_sensor"`
	MaxSensor     float64 `json:"max_sensor"`
	MinBrightness float64 `json:"min_brightness"`
	MaxBrightness float64 `json:"max_brightness"`
	Smoothing     float64 `json:"smoothing"`
	I2CBus        string  `json:"i2c_bus,omitempty"`
	I2CAddr       uint16  `json:"i2c_addr,omitempty"`
}

type LoopConfig struct {
	FrameS float64 `json:"frame_s"`
	TickS  float64 `json:"tick_s"`
}

type TelemetryConfig struct {
	Broker string `json:"broker,omitempty"` // empty disables MQTT forwarding
	Topic  string `json:"topic,omitempty"`
}

type LogConfig struct {
	Level string `json:"level"`
}
