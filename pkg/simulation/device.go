package simulation

import (
	"context"
	"log/slog"
	mathrand "math/rand/v2"
	"sync"
	"time"

	"github.com/getfleetsim/fleetsim/pkg/events"
	"github.com/getfleetsim/fleetsim/pkg/logging"
	"github.com/getfleetsim/fleetsim/pkg/telemetry"
)

// Sender is the injected send capability. *device.Device satisfies it, as
// does any hub sender directly.
type Sender interface {
	Send(ctx context.Context, payload map[string]any) error
}

// Statistics is a point-in-time view of one simulation.
type Statistics struct {
	DeviceID          string    `json:"deviceId"`
	Running           bool      `json:"isRunning"`
	MessageCount      int64     `json:"messageCount"`
	ErrorCount        int64     `json:"errorCount"`
	RuntimeSeconds    float64   `json:"runtimeSeconds"`
	MessagesPerMinute float64   `json:"messagesPerMinute"`
	StartTime         time.Time `json:"startTime,omitzero"`
}

// DeviceSimulation runs the pacing loop for a single device. It owns a
// private template clone so its pattern phases advance independently of any
// other device using the same template definition.
type DeviceSimulation struct {
	deviceID string
	template *telemetry.Template
	config   Config
	sender   Sender
	bus      *events.Bus
	log      *slog.Logger

	mu           sync.Mutex
	running      bool
	startTime    time.Time
	messageCount int64
	errorCount   int64
	cancel       context.CancelFunc
	done         chan struct{}
	wg           sync.WaitGroup
}

// NewDeviceSimulation creates a stopped simulation. bus may be nil.
func NewDeviceSimulation(deviceID string, tmpl *telemetry.Template, cfg Config, sender Sender, bus *events.Bus, log *slog.Logger) *DeviceSimulation {
	if log == nil {
		log = logging.Nop()
	}
	return &DeviceSimulation{
		deviceID: deviceID,
		template: tmpl.Clone(),
		config:   cfg,
		sender:   sender,
		bus:      bus,
		log:      log,
	}
}

// DeviceID returns the device id the simulation is bound to.
func (s *DeviceSimulation) DeviceID() string { return s.deviceID }

// Config returns the simulation's pacing parameters.
func (s *DeviceSimulation) Config() Config { return s.config }

// IsRunning reports whether the loop is active.
func (s *DeviceSimulation) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start launches the pacing loop. It is a no-op when already running.
func (s *DeviceSimulation) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.startTime = time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.loop(ctx, s.done)
	s.mu.Unlock()

	s.emit(events.SimulationStarted)
	s.log.Info("simulation started", "deviceId", s.deviceID)
}

// Stop cancels the loop and waits for it to terminate. After Stop returns,
// no further message events are emitted until Start is called again. It is
// a no-op (emitting nothing) when already stopped.
func (s *DeviceSimulation) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		// A loop that stopped itself may still be finishing; wait it out so
		// the quiesce guarantee holds either way.
		s.wg.Wait()
		return
	}
	s.running = false
	s.cancel()
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()

	s.emit(events.SimulationStopped)
	s.log.Info("simulation stopped", "deviceId", s.deviceID)
}

// selfStop transitions to stopped from inside the loop when the message cap
// is reached. Exactly one of Stop and selfStop wins the transition, so only
// one stop event is ever emitted per run.
func (s *DeviceSimulation) selfStop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	close(s.done)
	s.mu.Unlock()

	s.emit(events.SimulationStopped)
	s.log.Info("simulation reached message limit", "deviceId", s.deviceID, "maxMessages", s.config.MaxMessages)
}

func (s *DeviceSimulation) loop(ctx context.Context, done chan struct{}) {
	defer s.wg.Done()

	for {
		if s.limitReached() {
			s.selfStop()
			return
		}

		if s.config.BurstMode {
			if !s.sendBurst(ctx, done) {
				return
			}
		} else {
			s.sendOne(ctx)
		}

		select {
		case <-time.After(s.nextDelay()):
		case <-done:
			return
		}
	}
}

func (s *DeviceSimulation) limitReached() bool {
	if s.config.MaxMessages <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageCount >= s.config.MaxMessages
}

// sendOne generates and sends a single message, tallying the outcome. A
// failed send never stops the loop.
func (s *DeviceSimulation) sendOne(ctx context.Context) {
	msg := s.template.GenerateMessage()
	err := s.sender.Send(ctx, msg)

	s.mu.Lock()
	if err != nil {
		s.errorCount++
	} else {
		s.messageCount++
	}
	s.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		s.log.Debug("send failed", "deviceId", s.deviceID, "error", err)
	}
}

// sendBurst sends BurstCount messages spaced BurstInterval apart, each
// counted individually. It returns false when the loop should exit because
// the simulation was stopped mid-burst.
func (s *DeviceSimulation) sendBurst(ctx context.Context, done chan struct{}) bool {
	for i := 0; i < s.config.BurstCount; i++ {
		s.sendOne(ctx)

		if i == s.config.BurstCount-1 {
			break
		}
		select {
		case <-time.After(s.config.BurstInterval.Std()):
		case <-done:
			return false
		}
	}
	return true
}

// nextDelay computes interval ± jitter with the busy-loop floor applied.
func (s *DeviceSimulation) nextDelay() time.Duration {
	delay := s.config.Interval.Std()
	if s.config.Jitter > 0 {
		spread := (mathrand.Float64()*2 - 1) * s.config.Jitter * float64(delay)
		delay += time.Duration(spread)
	}
	if delay < minSleep {
		delay = minSleep
	}
	return delay
}

// Statistics returns the simulation's counters and derived rates.
func (s *DeviceSimulation) Statistics() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Statistics{
		DeviceID:     s.deviceID,
		Running:      s.running,
		MessageCount: s.messageCount,
		ErrorCount:   s.errorCount,
		StartTime:    s.startTime,
	}
	if !s.startTime.IsZero() {
		st.RuntimeSeconds = time.Since(s.startTime).Seconds()
	}
	if st.RuntimeSeconds > 0 {
		st.MessagesPerMinute = float64(st.MessageCount) / st.RuntimeSeconds * 60
	}
	return st
}

func (s *DeviceSimulation) emit(t events.Type) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(t, "simulation", map[string]any{"deviceId": s.deviceID})
}
