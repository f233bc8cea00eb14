package urclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-ur/logger"
)

// Well-known controller ports.
const (
	DefaultCommandPort   = 30002
	DefaultFeedbackPort  = 30003
	DefaultDashboardPort = 29999
	DefaultRTDEPort      = 30004
	DefaultSSHPort       = 22
)

// Credential is one username/password pair tried by the file-transfer side
// channel.
type Credential struct {
	User     string
	Password string
}

// Config holds the tunable parameters of a Client. Construct it with
// NewConfig and the WithXXX options; zero values are never valid.
type Config struct {
	// commandPort is the script port. Connect fails outright when this port
	// cannot be reached.
	commandPort int
	// feedbackPort is the binary telemetry port.
	feedbackPort int
	// dashboardPort is the text command/response port.
	dashboardPort int
	// rtdePort is the real-time data exchange port.
	rtdePort int
	// sshPort is the port of the file-transfer side channel used by
	// ListPrograms.
	sshPort int

	// connectTimeout bounds the command-socket dial. Defaults to 3 seconds.
	connectTimeout time.Duration
	// channelTimeout bounds the dial of each auxiliary channel (feedback,
	// dashboard, RTDE). Defaults to 2 seconds.
	channelTimeout time.Duration
	// dashboardTimeout bounds one dashboard write+read round trip. Defaults
	// to 2 seconds.
	dashboardTimeout time.Duration
	// pollInterval is the cadence of the dashboard status poller. Defaults
	// to 2 seconds.
	pollInterval time.Duration
	// broadcastInterval is the cadence of the snapshot fan-out. Defaults to
	// 100 milliseconds.
	broadcastInterval time.Duration
	// stateLockWindow is how long an authoritative program-state transition
	// shields the snapshot from advisory overwrites. Defaults to 1 second.
	stateLockWindow time.Duration

	// credentials are tried in order by ListPrograms.
	credentials []Credential
	// programDirs are the candidate remote directories searched for program
	// files.
	programDirs []string

	logger logger.Logger
}

// NewConfig creates a Config with controller defaults and applies the given
// options.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		commandPort:       DefaultCommandPort,
		feedbackPort:      DefaultFeedbackPort,
		dashboardPort:     DefaultDashboardPort,
		rtdePort:          DefaultRTDEPort,
		sshPort:           DefaultSSHPort,
		connectTimeout:    3 * time.Second,
		channelTimeout:    2 * time.Second,
		dashboardTimeout:  2 * time.Second,
		pollInterval:      2 * time.Second,
		broadcastInterval: 100 * time.Millisecond,
		stateLockWindow:   time.Second,
		credentials: []Credential{
			{User: "root", Password: "easybot"},
			{User: "ur", Password: "easybot"},
		},
		programDirs: []string{"/programs", "/data/programs", "/ur-os/programs"},
		logger:      logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc struct {
	name      string
	applyFunc func(*Config) error
}

func (o *optFunc) apply(cfg *Config) error { return o.applyFunc(cfg) }

func newOptFunc(name string, f func(*Config) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

func validPort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s %d out of range [1, 65535]", name, port)
	}

	return nil
}

// WithCommandPort overrides the script port. The default is 30002.
func WithCommandPort(port int) Option {
	return newOptFunc("WithCommandPort", func(cfg *Config) error {
		if err := validPort("command port", port); err != nil {
			return err
		}
		cfg.commandPort = port

		return nil
	})
}

// WithFeedbackPort overrides the telemetry port. The default is 30003.
func WithFeedbackPort(port int) Option {
	return newOptFunc("WithFeedbackPort", func(cfg *Config) error {
		if err := validPort("feedback port", port); err != nil {
			return err
		}
		cfg.feedbackPort = port

		return nil
	})
}

// WithDashboardPort overrides the dashboard port. The default is 29999.
func WithDashboardPort(port int) Option {
	return newOptFunc("WithDashboardPort", func(cfg *Config) error {
		if err := validPort("dashboard port", port); err != nil {
			return err
		}
		cfg.dashboardPort = port

		return nil
	})
}

// WithRTDEPort overrides the RTDE port. The default is 30004.
func WithRTDEPort(port int) Option {
	return newOptFunc("WithRTDEPort", func(cfg *Config) error {
		if err := validPort("rtde port", port); err != nil {
			return err
		}
		cfg.rtdePort = port

		return nil
	})
}

// WithSSHPort overrides the port of the file-transfer side channel. The
// default is 22.
func WithSSHPort(port int) Option {
	return newOptFunc("WithSSHPort", func(cfg *Config) error {
		if err := validPort("ssh port", port); err != nil {
			return err
		}
		cfg.sshPort = port

		return nil
	})
}

// WithConnectTimeout bounds the command-socket dial. The default is 3
// seconds.
func WithConnectTimeout(timeout time.Duration) Option {
	return newOptFunc("WithConnectTimeout", func(cfg *Config) error {
		if timeout <= 0 {
			return errors.New("connect timeout must be positive")
		}
		cfg.connectTimeout = timeout

		return nil
	})
}

// WithChannelTimeout bounds the dial of each auxiliary channel. The default
// is 2 seconds.
func WithChannelTimeout(timeout time.Duration) Option {
	return newOptFunc("WithChannelTimeout", func(cfg *Config) error {
		if timeout <= 0 {
			return errors.New("channel timeout must be positive")
		}
		cfg.channelTimeout = timeout

		return nil
	})
}

// WithDashboardTimeout bounds one dashboard command/response round trip.
// The default is 2 seconds.
func WithDashboardTimeout(timeout time.Duration) Option {
	return newOptFunc("WithDashboardTimeout", func(cfg *Config) error {
		if timeout <= 0 {
			return errors.New("dashboard timeout must be positive")
		}
		cfg.dashboardTimeout = timeout

		return nil
	})
}

// WithPollInterval sets the status poller cadence. The default is 2 seconds.
func WithPollInterval(interval time.Duration) Option {
	return newOptFunc("WithPollInterval", func(cfg *Config) error {
		if interval <= 0 {
			return errors.New("poll interval must be positive")
		}
		cfg.pollInterval = interval

		return nil
	})
}

// WithBroadcastInterval sets the snapshot fan-out cadence. The default is
// 100 milliseconds.
func WithBroadcastInterval(interval time.Duration) Option {
	return newOptFunc("WithBroadcastInterval", func(cfg *Config) error {
		if interval <= 0 {
			return errors.New("broadcast interval must be positive")
		}
		cfg.broadcastInterval = interval

		return nil
	})
}

// WithStateLockWindow sets how long a program-state transition shields the
// snapshot from advisory overwrites. The default is 1 second.
func WithStateLockWindow(window time.Duration) Option {
	return newOptFunc("WithStateLockWindow", func(cfg *Config) error {
		if window <= 0 {
			return errors.New("state lock window must be positive")
		}
		cfg.stateLockWindow = window

		return nil
	})
}

// WithCredentials replaces the credential candidates tried by ListPrograms.
func WithCredentials(creds ...Credential) Option {
	return newOptFunc("WithCredentials", func(cfg *Config) error {
		if len(creds) == 0 {
			return errors.New("at least one credential is required")
		}
		cfg.credentials = creds

		return nil
	})
}

// WithProgramDirs replaces the candidate remote directories searched by
// ListPrograms.
func WithProgramDirs(dirs ...string) Option {
	return newOptFunc("WithProgramDirs", func(cfg *Config) error {
		if len(dirs) == 0 {
			return errors.New("at least one program directory is required")
		}
		cfg.programDirs = dirs

		return nil
	})
}

// WithLogger sets the logger used by the client and its channels.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *Config) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
