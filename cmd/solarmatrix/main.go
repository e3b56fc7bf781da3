package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"solarmatrix-go/bus"
	"solarmatrix-go/drivers/framebuf"
	"solarmatrix-go/drivers/led"
	"solarmatrix-go/drivers/lightsensor"
	"solarmatrix-go/drivers/meterhttp"
	"solarmatrix-go/drivers/panel"
	"solarmatrix-go/drivers/restart"
	"solarmatrix-go/drivers/wifi"
	"solarmatrix-go/services/app"
	"solarmatrix-go/services/brightness"
	"solarmatrix-go/services/config"
	"solarmatrix-go/services/display"
	"solarmatrix-go/services/meter"
	"solarmatrix-go/services/telemetry"
	"solarmatrix-go/types"
	"solarmatrix-go/x/logx"
	"solarmatrix-go/x/strx"
	"solarmatrix-go/x/timex"
)

var log = logx.New("main")

func main() {
	device := flag.String("device", strx.Coalesce(os.Getenv("SOLARMATRIX_DEVICE"), "galactic"), "embedded config profile")
	flag.Parse()

	cfg, err := config.Load(*device)
	if err != nil {
		log.Fatalf("config: %v", err)
		os.Exit(2)
	}
	logx.SetLevel(logx.ParseLevel(cfg.Log.Level))

	if _, err := host.Init(); err != nil {
		log.Warnf("periph host init: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("bootstrapping bus …")
	b := bus.NewBus(8)
	ctx = context.WithValue(ctx, config.CtxDeviceKey, *device)
	config.NewConfigService().Start(ctx, b.NewConnection("config"))
	if err := telemetry.New(nil).Start(ctx, b.NewConnection("telemetry")); err != nil {
		log.Warnf("telemetry: %v", err)
	}

	fb := framebuf.New(cfg.Display.Width, cfg.Display.Height)
	pnl := openPanel(cfg.Display, fb)
	defer pnl.Close()
	pnl.SetBrightness(cfg.Display.DefaultBrightness)
	if err := pnl.Present(); err != nil {
		log.Warnf("present: %v", err)
	}

	wm, err := wifi.New(cfg.WiFi)
	if err != nil {
		log.Fatalf("wifi: %v", err)
		os.Exit(2)
	}
	log.Infof("connecting to wifi %q …", cfg.WiFi.SSID)
	if err := wm.Connect(ctx); err != nil {
		log.Errorf("wifi connection failed: %v", err)
	} else {
		log.Infof("wifi connected")
	}

	mc := meter.New(
		meterhttp.New(cfg.Meter.Username, cfg.Meter.Password, timex.Seconds(cfg.Meter.TimeoutS)),
		wm,
		restart.New(cfg.WiFi.RebootCommand),
		meter.Options{
			MaxRetries: cfg.Meter.MaxRetries,
			Indicator:  openLED(cfg.Meter),
			Conn:       b.NewConnection("meter"),
		},
	)

	loop := app.New(app.Deps{
		Meter:      mc,
		Renderer:   display.NewRenderer(fb),
		Mapper:     display.NewMapper(cfg.Meter.PeakSolar, cfg.Meter.WorstGrid),
		Brightness: brightness.New(brightness.ParamsFrom(cfg.Brightness)),
		Sensor:     openSensor(cfg.Brightness),
		Panel:      pnl,
		Conn:       b.NewConnection("app"),
	}, app.Options{
		URLSolar:  cfg.Meter.URLSolar,
		URLGrid:   cfg.Meter.URLGrid,
		Frame:     timex.Seconds(cfg.Loop.FrameS),
		Tick:      timex.Seconds(cfg.Loop.TickS),
		TextScale: cfg.Display.TextScale,
	})

	if err := loop.Run(ctx); err != nil {
		log.Errorf("loop: %v", err)
		os.Exit(1)
	}
	log.Infof("stopped")
	// let the telemetry service flush its last message
	time.Sleep(100 * time.Millisecond)
}

func openPanel(cfg types.DisplayConfig, fb *framebuf.Buffer) *panel.Panel {
	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		log.Warnf("spi %q: %v; running without a panel", cfg.SPIPort, err)
		return panel.New(fb, panel.Discard{}, nil, cfg.Serpentine)
	}
	p, err := panel.Open(port, cfg.SPIHz, fb, cfg.Serpentine)
	if err != nil {
		log.Warnf("panel: %v; running without a panel", err)
		port.Close()
		return panel.New(fb, panel.Discard{}, nil, cfg.Serpentine)
	}
	return p
}

func openSensor(cfg types.BrightnessConfig) app.LightSensor {
	ib, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		log.Warnf("i2c %q: %v; using a fixed light level", cfg.I2CBus, err)
		return lightsensor.Fixed(cfg.MaxSensor)
	}
	s, err := lightsensor.New(ib, cfg.I2CAddr)
	if err != nil {
		log.Warnf("light sensor: %v; using a fixed light level", err)
		ib.Close()
		return lightsensor.Fixed(cfg.MaxSensor)
	}
	return s
}

func openLED(cfg types.MeterConfig) meter.Indicator {
	if cfg.LEDPin == "" {
		return led.Nop{}
	}
	pin := gpioreg.ByName(cfg.LEDPin)
	if pin == nil {
		log.Warnf("led pin %q not found", cfg.LEDPin)
		return led.Nop{}
	}
	return led.New(pin, time.Duration(cfg.PulseMs)*time.Millisecond)
}
