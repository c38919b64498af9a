package gpu

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

// Severity is a set of debug message severities.
type Severity uint32

const (
	SeverityVerbose Severity = 1 << iota
	SeverityInfo
	SeverityWarning
	SeverityError

	SeverityAll = SeverityVerbose | SeverityInfo | SeverityWarning | SeverityError
)

var severityNames = []string{"Verbose", "Info", "Warning", "Error"}

func (s Severity) String() string {
	return flagString(uint32(s), severityNames)
}

// MessageType is a set of debug message categories.
type MessageType uint32

const (
	MessageGeneral MessageType = 1 << iota
	MessageValidation
	MessagePerformance

	MessageAll = MessageGeneral | MessageValidation | MessagePerformance
)

var messageTypeNames = []string{"General", "Validation", "Performance"}

func (t MessageType) String() string {
	return flagString(uint32(t), messageTypeNames)
}

// Message is one debug message delivered by the host.
type Message struct {
	Severity Severity
	Type     MessageType
	ID       string
	Text     string
}

// Callback receives debug messages. The host may call it from any thread,
// reentrantly from inside whatever call triggered the message.
type Callback func(msg Message)

// MessengerConfig selects which messages reach Callback.
type MessengerConfig struct {
	Severities Severity
	Types      MessageType
	Callback   Callback
}

// Bridge forwards debug messages to a logger and counts them per severity.
// Its callback takes no locks of its own.
type Bridge struct {
	counts [4]uint64

	log        logrus.FieldLogger
	severities Severity
	types      MessageType
}

func NewBridge(log logrus.FieldLogger, severities Severity, types MessageType) *Bridge {
	return &Bridge{
		log:        log,
		severities: severities,
		types:      types,
	}
}

// Config returns the messenger configuration used both for chaining into
// instance creation and for attaching the long-lived messenger.
func (b *Bridge) Config() MessengerConfig {
	return MessengerConfig{
		Severities: b.severities,
		Types:      b.types,
		Callback:   b.handle,
	}
}

// Counts returns how many messages of each single severity were received.
func (b *Bridge) Counts() map[Severity]uint64 {
	out := make(map[Severity]uint64, len(b.counts))
	for i := range b.counts {
		out[Severity(1)<<uint(i)] = atomic.LoadUint64(&b.counts[i])
	}
	return out
}

func (b *Bridge) handle(msg Message) {
	defer func() {
		// The host is mid-call; never unwind through it.
		if r := recover(); r != nil {
			b.log.WithField("panic", r).Error("debug callback panicked")
		}
	}()

	level := logrus.DebugLevel
	for i := len(b.counts) - 1; i >= 0; i-- {
		if msg.Severity&(Severity(1)<<uint(i)) != 0 {
			atomic.AddUint64(&b.counts[i], 1)
			level = severityLevel(Severity(1) << uint(i))
			break
		}
	}

	entry := b.log.WithFields(logrus.Fields{
		"severity":   msg.Severity.String(),
		"type":       msg.Type.String(),
		"message_id": msg.ID,
	})
	switch level {
	case logrus.ErrorLevel:
		entry.Error(msg.Text)
	case logrus.WarnLevel:
		entry.Warn(msg.Text)
	case logrus.InfoLevel:
		entry.Info(msg.Text)
	default:
		entry.Debug(msg.Text)
	}
}

func severityLevel(s Severity) logrus.Level {
	switch s {
	case SeverityError:
		return logrus.ErrorLevel
	case SeverityWarning:
		return logrus.WarnLevel
	case SeverityInfo:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

// Diagnostics is the attached debug messenger. A nil *Diagnostics means
// diagnostics are unavailable; all of its methods accept that.
type Diagnostics struct {
	messenger Messenger
}

// Attach resolves the debug messenger entry points on instance and creates
// a messenger with config. It fails with ErrDiagnosticsUnavailable when the
// entry points cannot be resolved; callers may continue without diagnostics.
func Attach(instance Instance, config MessengerConfig) (*Diagnostics, error) {
	factory, ok := instance.Diagnostics()
	if !ok || factory == nil {
		return nil, errors.Wrap(ErrDiagnosticsUnavailable, "resolve debug messenger entry points")
	}

	messenger, err := factory.CreateMessenger(config)
	if err != nil {
		return nil, stageError(ErrDiagnosticsUnavailable, err, "create debug messenger")
	}
	return &Diagnostics{messenger: messenger}, nil
}

// Available reports whether a messenger is attached.
func (d *Diagnostics) Available() bool {
	return d != nil && d.messenger != nil
}

// Detach destroys the messenger. It must run before the owning instance is
// destroyed. Detaching twice has no effect.
func (d *Diagnostics) Detach() {
	if !d.Available() {
		return
	}
	d.messenger.Destroy()
	d.messenger = nil
}

func flagString(v uint32, names []string) string {
	if v == 0 {
		return "None"
	}
	s := ""
	for i, name := range names {
		if v&(1<<uint(i)) == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += name
	}
	if s == "" {
		return "Unknown"
	}
	return s
}
