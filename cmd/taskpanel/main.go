// Command taskpanel runs the button/switch/LED panel: input producers feed a
// bounded queue drained by the LED display task, a supervisor suspends and
// resumes tasks from input combinations, and a one-shot watchdog checks that
// the display made progress.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/taskpanel/internal/logic"
	"github.com/sweeney/taskpanel/internal/mqtt"
	"github.com/sweeney/taskpanel/internal/port"
	"github.com/sweeney/taskpanel/internal/queue"
	"github.com/sweeney/taskpanel/internal/sched"
	"github.com/sweeney/taskpanel/internal/status"
	"github.com/sweeney/taskpanel/internal/tasks"
	"github.com/sweeney/taskpanel/internal/web"
)

// Task names.
const (
	taskDisplay    logic.TaskID = "display"
	taskButtons    logic.TaskID = "buttons"
	taskSwitches   logic.TaskID = "switches"
	taskSupervisor logic.TaskID = "supervisor"
)

type options struct {
	poll, settle     time.Duration
	display, block   time.Duration
	sendBlock, duty  time.Duration
	queueLen         int
	watchdog         time.Duration
	threshold        uint64
	watchdogDelete   string
	buttonPolicy     logic.Policy
	port             port.Config
	broker, clientID string
	heartbeat        time.Duration
	httpAddr         string
	printState       bool
}

func main() {
	var opts options
	def := port.DefaultConfig()

	flag.DurationVar(&opts.poll, "poll", 100*time.Millisecond, "Input polling interval")
	flag.DurationVar(&opts.settle, "settle", 250*time.Millisecond, "Debounce settle delay")
	flag.DurationVar(&opts.display, "display", 500*time.Millisecond, "Pause after each displayed event")
	flag.DurationVar(&opts.block, "block", 30*time.Second, "How long the display waits for an event before blinking")
	flag.DurationVar(&opts.sendBlock, "send-block", time.Second, "How long a producer waits for a free queue slot")
	flag.DurationVar(&opts.duty, "duty", 250*time.Millisecond, "Error blink half-period")
	flag.IntVar(&opts.queueLen, "queue-len", queue.DefaultCapacity, "Event queue capacity")
	flag.DurationVar(&opts.watchdog, "watchdog", 10*time.Second, "Delay before the liveness checkpoint")
	flag.Uint64Var(&opts.threshold, "threshold", 9, "Events the display must have shown by the checkpoint")
	flag.StringVar(&opts.watchdogDelete, "watchdog-delete", "", "Task to delete after the checkpoint (empty keeps all tasks)")
	policy := flag.String("button-policy", logic.AcceptNonZero.String(), "Button debounce policy: nonzero, all or hold")
	flag.StringVar(&opts.port.Backend, "backend", def.Backend, "Port backend: gpiocdev, periph or sim")
	flag.StringVar(&opts.port.Chip, "chip", def.Chip, "GPIO chip for the gpiocdev backend")
	buttons := flag.String("buttons", joinLines(def.Buttons), "Comma-separated BCM lines for the buttons")
	switches := flag.String("switches", joinLines(def.Switches), "Comma-separated BCM lines for the switches")
	leds := flag.String("leds", joinLines(def.LEDs), "Comma-separated BCM lines for the LEDs")
	flag.BoolVar(&opts.port.ActiveLow, "active-low", def.ActiveLow, "Inputs read 1 when the line is low")
	flag.StringVar(&opts.broker, "broker", "", "MQTT broker address (empty to disable)")
	flag.StringVar(&opts.clientID, "client-id", "taskpanel", "MQTT client ID")
	flag.DurationVar(&opts.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&opts.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	level := flag.String("log-level", "info", "Log level: debug, info, warn or error")
	flag.BoolVar(&opts.printState, "print-state", false, "Print current inputs and exit")

	flag.Parse()

	lvl, err := log.ParseLevel(*level)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if opts.buttonPolicy, err = logic.ParsePolicy(*policy); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	for _, l := range []struct {
		name string
		in   string
		out  *[]int
	}{
		{"buttons", *buttons, &opts.port.Buttons},
		{"switches", *switches, &opts.port.Switches},
		{"leds", *leds, &opts.port.LEDs},
	} {
		if *l.out, err = parseLines(l.in); err != nil {
			log.Fatalf("fatal: -%s: %v", l.name, err)
		}
	}

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(opts options) error {
	// Port setup failure is fatal: no task starts.
	p, err := port.Open(opts.port)
	if err != nil {
		return fmt.Errorf("init port: %w", err)
	}
	defer p.Close()

	if opts.printState {
		b, err := p.Read(port.ChannelButtons)
		if err != nil {
			return fmt.Errorf("read buttons: %w", err)
		}
		s, err := p.Read(port.ChannelSwitches)
		if err != nil {
			return fmt.Errorf("read switches: %w", err)
		}
		fmt.Printf("buttons: %04b, switches: %04b\n", b, s)
		return nil
	}

	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.Discard{}
	if opts.broker != "" {
		rp, err := mqtt.NewRealPublisher(opts.broker, opts.clientID)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = rp
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		Backend:     opts.port.Backend,
		PollMs:      opts.poll.Milliseconds(),
		SettleMs:    opts.settle.Milliseconds(),
		DisplayMs:   opts.display.Milliseconds(),
		BlockMs:     opts.block.Milliseconds(),
		QueueLen:    opts.queueLen,
		WatchdogMs:  opts.watchdog.Milliseconds(),
		Threshold:   opts.threshold,
		HeartbeatMs: opts.heartbeat.Milliseconds(),
		Broker:      opts.broker,
		HTTPAddr:    opts.httpAddr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	q := queue.New(opts.queueLen)
	counter := &tasks.Counter{}
	scheduler := sched.New()

	display := tasks.NewDisplay(tasks.DisplayConfig{
		Name:   taskDisplay,
		Period: opts.display,
		Block:  opts.block,
		Duty:   opts.duty,
		Lines:  len(opts.port.LEDs),
	}, q, p, counter, publisher, tracker)

	buttonProducer := tasks.NewProducer(tasks.ProducerConfig{
		Name:   taskButtons,
		Group:  logic.GroupButtons,
		Poll:   opts.poll,
		Settle: opts.settle,
		Block:  opts.sendBlock,
		Policy: opts.buttonPolicy,
		Lines:  len(opts.port.Buttons),
	}, p, q)

	switchProducer := tasks.NewProducer(tasks.ProducerConfig{
		Name:   taskSwitches,
		Group:  logic.GroupSwitches,
		Poll:   opts.poll,
		Settle: opts.settle,
		Block:  opts.sendBlock,
		Policy: logic.AcceptAll,
		Lines:  len(opts.port.Switches),
	}, p, q)

	supervisor := tasks.NewSupervisorTask(tasks.SupervisorConfig{
		Name:   taskSupervisor,
		Poll:   opts.poll,
		Settle: opts.settle,
	}, p, logic.NewSupervisor(logic.DefaultRules(taskDisplay, taskSwitches, taskButtons)), scheduler, publisher, tracker)

	for _, t := range []struct {
		name     logic.TaskID
		priority int
		fn       sched.TaskFunc
	}{
		{taskSupervisor, 3, supervisor.Run},
		{taskDisplay, 2, display.Run},
		{taskButtons, 1, buttonProducer.Run},
		{taskSwitches, 1, switchProducer.Run},
	} {
		if _, err := scheduler.Create(t.name, t.priority, t.fn); err != nil {
			return fmt.Errorf("create task %s: %w", t.name, err)
		}
	}

	watchdog := tasks.NewWatchdog(tasks.WatchdogConfig{
		Delay:     opts.watchdog,
		Threshold: opts.threshold,
		Delete:    logic.TaskID(opts.watchdogDelete),
	}, counter, scheduler, publisher, tracker)

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	scheduler.Start(ctx)
	watchdog.Start()
	log.Printf("started: backend=%s poll=%v settle=%v queue=%d watchdog=%v broker=%q",
		opts.port.Backend, opts.poll, opts.settle, opts.queueLen, opts.watchdog, opts.broker)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	err = runLoop(publisher, publisher, tracker, scheduler, q, opts.heartbeat, time.Now, ticker.C, sigCh)

	watchdog.Stop()
	cancel()
	scheduler.Wait()
	return err
}

// taskStates reports the state of every task.
type taskStates interface {
	States() map[string]sched.State
}

// runLoop refreshes the status tracker, sends heartbeats and publishes the
// shutdown event once a signal arrives.
func runLoop(publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, states taskStates, q *queue.Queue, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastBeat := now()

	refresh := func() {
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		if states != nil {
			m := states.States()
			s := make(map[string]string, len(m))
			for name, st := range m {
				s[name] = string(st)
			}
			tracker.SetTasks(s)
		}
		if q != nil {
			tracker.SetQueue(q.Len(), q.Cap(), q.Stats())
		}
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			refresh()
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			refresh()

			if heartbeat <= 0 || t.Sub(lastBeat) < heartbeat {
				continue
			}
			lastBeat = t

			if net := readNetworkInfo(); net != nil {
				tracker.SetNetwork(net)
			}
			snap := tracker.Snapshot()
			log.Printf("heartbeat: uptime=%v progress=%d directives=%d leds=%04b",
				t.Sub(snap.StartTime).Truncate(time.Second), snap.Progress, snap.Directives, snap.LEDs)

			hbEvent := mqtt.SystemEvent{
				Timestamp:  t,
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType     = "NETWORK_TYPE"
	envNetworkIP       = "NETWORK_IP"
	envNetworkStatus   = "NETWORK_STATUS"
	envNetworkWifiSSID = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:   os.Getenv(envNetworkType),
		IP:     os.Getenv(envNetworkIP),
		Status: s,
		SSID:   os.Getenv(envNetworkWifiSSID),
	}
}

// parseLines parses a comma-separated list of line offsets.
func parseLines(s string) ([]int, error) {
	var lines []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("bad line %q: %w", f, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("bad line %d: negative", n)
		}
		lines = append(lines, n)
	}
	return lines, nil
}

func joinLines(lines []int) string {
	parts := make([]string, len(lines))
	for i, n := range lines {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
