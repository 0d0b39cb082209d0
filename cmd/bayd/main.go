// Command bayd runs a parking-bay occupancy sensor unit: it samples a
// rangefinder on a fixed cadence, drives the local LED panel, reports
// occupancy transitions to an MQTT broker, and serves a small HTTP
// surface for status and metrics.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/baysense/bayd/internal/api"
	"github.com/baysense/bayd/internal/cloud"
	"github.com/baysense/bayd/internal/config"
	"github.com/baysense/bayd/internal/gpiohal"
	"github.com/baysense/bayd/internal/leds"
	"github.com/baysense/bayd/internal/loop"
	"github.com/baysense/bayd/internal/monitoring"
	"github.com/baysense/bayd/internal/occupancy"
	"github.com/baysense/bayd/internal/timeutil"
	"github.com/baysense/bayd/internal/uartrange"
	"github.com/baysense/bayd/internal/ultrasonic"
	"github.com/baysense/bayd/internal/units"
	"github.com/baysense/bayd/internal/version"
)

var (
	devMode    = flag.Bool("dev", false, "Run in dev mode with simulated peripherals")
	listen     = flag.String("listen", ":8080", "Listen address")
	broker     = flag.String("broker", "", "MQTT broker URL, e.g. tcp://broker.example:1883 (ignored in dev mode)")
	bayID      = flag.String("bay", "", "Bay identifier used in report topics")
	configPath = flag.String("config", "", "Path to tuning config JSON (optional)")
	sensor     = flag.String("sensor", "gpio", "Sensor type: gpio or uart")
	sensorPin  = flag.Int("pin", 0, "GPIO pin for the ultrasonic sensor")
	uartPort   = flag.String("uart-port", "/dev/ttyS0", "Serial device for -sensor=uart")
	activeLow  = flag.Bool("leds-active-low", false, "LED channels sink current instead of sourcing it")
	statusUnit = flag.String("units", units.CM, "Display units for /api/status: cm, in, or m")
)

// Default LED pin assignments: traffic, activity, network.
var defaultLEDPins = [3]leds.PinTriple{
	{Red: 8, Green: 9, Blue: 10},
	{Red: 15, Green: 16, Blue: 17},
	{Red: 21, Green: 22, Blue: 23},
}

// devSampler feeds the loop a slow random walk so the whole pipeline can
// run on a desk with no hardware attached.
type devSampler struct {
	distanceCM float64
}

func (s *devSampler) Sample() (float64, error) {
	s.distanceCM += rand.Float64()*4 - 2
	if s.distanceCM < 0.5 {
		s.distanceCM = 0.5
	}
	if s.distanceCM > 20 {
		s.distanceCM = 20
	}
	return s.distanceCM, nil
}

func (s *devSampler) SentinelCM() float64 { return 400 }

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !*devMode && *broker == "" {
		log.Fatal("Broker URL is required outside dev mode")
	}
	if !*devMode && *bayID == "" {
		log.Fatal("Bay ID is required outside dev mode")
	}
	if *devMode && *bayID == "" {
		*bayID = "dev-bay"
	}
	if !*devMode && *sensor == "gpio" && *sensorPin <= 0 {
		log.Fatal("GPIO pin is required for -sensor=gpio")
	}
	if !units.IsValid(*statusUnit) {
		log.Fatalf("invalid units %q: expected one of %s", *statusUnit, units.GetValidUnitsString())
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		monitoring.Logf("loaded tuning config from %s", *configPath)
	}

	clock := timeutil.RealClock{}

	metrics := monitoring.NewMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}

	var opener gpiohal.Opener
	if *devMode {
		opener = gpiohal.NewMemOpener()
	} else {
		var err error
		opener, err = gpiohal.NewPeriphOpener()
		if err != nil {
			log.Fatalf("failed to initialize GPIO host: %v", err)
		}
	}

	panel, err := leds.OpenPanel(opener, defaultLEDPins, *activeLow)
	if err != nil {
		log.Fatalf("failed to open LED panel: %v", err)
	}
	defer panel.CloseAll()

	var sampler loop.Sampler
	switch {
	case *devMode:
		sampler = &devSampler{distanceCM: 15}
	case *sensor == "uart":
		ranger, err := uartrange.Open(*uartPort, uartrange.PortOptions{}, tuning.GetSentinelDistanceCM())
		if err != nil {
			log.Fatalf("failed to open rangefinder: %v", err)
		}
		defer ranger.Close()
		sampler = ranger
	case *sensor == "gpio":
		sampler = ultrasonic.New(opener, clock, ultrasonic.Config{
			Pin:               *sensorPin,
			TriggerHold:       tuning.GetTriggerHold(),
			MaxPollIterations: tuning.GetMaxPollIterations(),
			SentinelCM:        tuning.GetSentinelDistanceCM(),
		})
	default:
		log.Fatalf("unknown sensor type %q: expected gpio or uart", *sensor)
	}

	var client cloud.Client
	if *devMode {
		mock := cloud.NewMockClient()
		mock.SetupScript = []bool{true}
		client = mock
	} else {
		client, err = cloud.NewMQTTClient(cloud.Config{
			BrokerURL: *broker,
			BayID:     *bayID,
			Username:  os.Getenv("BAYD_MQTT_USERNAME"),
			Password:  os.Getenv("BAYD_MQTT_PASSWORD"),
		})
		if err != nil {
			log.Fatalf("failed to create broker client: %v", err)
		}
	}

	state := loop.NewStateCell()
	reporter := occupancy.NewReporter(
		func(occupied bool) error { return client.ReportState("occupied", occupied) },
		state.Connected,
	)
	mapper := occupancy.NewMapper(occupancy.Thresholds{
		NearCM: tuning.GetNearThresholdCM(),
		FarCM:  tuning.GetFarThresholdCM(),
	}, panel, reporter)

	controlLoop := loop.New(loop.Options{
		Clock:         clock,
		Sampler:       sampler,
		Panel:         panel,
		Mapper:        mapper,
		Client:        client,
		Mailbox:       cloud.NewStatusMailbox(),
		Metrics:       metrics,
		State:         state,
		SamplePeriod:  tuning.GetSamplePeriod(),
		RetryInterval: tuning.GetRetryInterval(),
		LoopSleep:     tuning.GetLoopSleep(),
	})

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// control loop goroutine; a fatal peripheral error takes the whole
	// unit down so the supervisor can restart it
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := controlLoop.Run(ctx); err != nil {
			monitoring.Logf("ERROR: control loop failed: %v", err)
		}
		stop()
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(state, reg, *bayID, version.String(), *statusUnit, clock).ServeMux()
		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		monitoring.Logf("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			monitoring.Logf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				monitoring.Logf("HTTP server force close error: %v", err)
			}
		}

		monitoring.Logf("HTTP server routine stopped")
	}()

	monitoring.Logf("bayd %s starting: bay %s, sensor %s", version.String(), *bayID, *sensor)
	wg.Wait()
	monitoring.Logf("graceful shutdown complete")
}
