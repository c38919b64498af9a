package gpu

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/loov/hrtime"
	"github.com/sirupsen/logrus"
)

// State is the initialization state of a Context.
type State int

const (
	Uninitialized State = iota
	InstanceReady
	DiagnosticsReady
	AcceleratorSelected
	DeviceReady
	Failed
	Closed
)

var stateNames = [...]string{
	Uninitialized:       "Uninitialized",
	InstanceReady:       "InstanceReady",
	DiagnosticsReady:    "DiagnosticsReady",
	AcceleratorSelected: "AcceleratorSelected",
	DeviceReady:         "DeviceReady",
	Failed:              "Failed",
	Closed:              "Closed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Options configures Context.Init.
type Options struct {
	Instance InstanceOptions

	// Severities and Types filter the debug messages forwarded to the log
	// when Instance.EnableDiagnostics is set.
	Severities Severity
	Types      MessageType
}

// Context owns the instance, the optional debug messenger and the logical
// device, and references the selected accelerator and graphics queue.
// Resources are released in reverse creation order by Close, or by Init
// itself when a stage fails. A Context is not safe for concurrent use.
type Context struct {
	ID uuid.UUID

	log     logrus.FieldLogger
	state   State
	reached State

	instance    Instance
	bridge      *Bridge
	diagnostics *Diagnostics
	selection   Selection
	device      Device
	queue       Queue

	releases releaseStack
}

func NewContext(log logrus.FieldLogger) *Context {
	id := uuid.New()
	return &Context{
		ID:  id,
		log: log.WithField("context", id.String()),
	}
}

// Init runs the bring-up sequence. On failure every resource created so far
// is released, the context moves to Failed and the stage error is returned.
// ErrDiagnosticsUnavailable is logged and does not fail Init.
func (c *Context) Init(loader Loader, opts Options) error {
	if c.state != Uninitialized {
		return errors.Newf("gpu: cannot initialize context in state %s", c.state)
	}

	instanceOpts := opts.Instance
	if instanceOpts.EnableDiagnostics {
		c.bridge = NewBridge(c.log.WithField("stage", "diagnostics"), opts.Severities, opts.Types)
		instanceOpts.Diagnostics = c.bridge.Config()
	}

	err := c.stage("instance", func(log logrus.FieldLogger) error {
		instance, err := CreateInstance(loader, instanceOpts, log)
		if err != nil {
			return err
		}
		c.instance = instance
		c.releases.push("instance", func() {
			instance.Destroy()
			c.instance = nil
		})
		c.advance(InstanceReady)
		return nil
	})
	if err != nil {
		return c.fail(err)
	}

	if instanceOpts.EnableDiagnostics {
		err = c.stage("diagnostics", func(log logrus.FieldLogger) error {
			diagnostics, err := Attach(c.instance, c.bridge.Config())
			if err != nil {
				return err
			}
			c.diagnostics = diagnostics
			c.releases.push("debug messenger", func() {
				diagnostics.Detach()
				c.diagnostics = nil
			})
			c.advance(DiagnosticsReady)
			return nil
		})
		if errors.Is(err, ErrDiagnosticsUnavailable) {
			c.log.WithError(err).Warn("continuing without debug messenger")
		} else if err != nil {
			return c.fail(err)
		}
	}

	err = c.stage("select", func(log logrus.FieldLogger) error {
		selection, err := SelectAccelerator(c.instance, log)
		if err != nil {
			return err
		}
		c.selection = selection
		c.advance(AcceleratorSelected)
		return nil
	})
	if err != nil {
		return c.fail(err)
	}

	err = c.stage("device", func(log logrus.FieldLogger) error {
		device, queue, err := CreateLogicalDevice(c.selection.Accelerator, c.selection.QueueFamily)
		if err != nil {
			return err
		}
		c.device = device
		c.queue = queue
		c.releases.push("device", func() {
			device.Destroy()
			c.device = nil
			c.queue = nil
		})
		c.advance(DeviceReady)
		log.WithField("queue_family", c.selection.QueueFamily.GraphicsFamily).Info("logical device ready")
		return nil
	})
	if err != nil {
		return c.fail(err)
	}
	return nil
}

// Close releases everything the context owns, device first and instance
// last. Closing a closed or failed context has no effect.
func (c *Context) Close() {
	if c.releases.len() == 0 && (c.state == Closed || c.state == Failed) {
		return
	}
	c.releases.unwind(c.log)
	c.selection = Selection{}
	if c.state != Failed {
		c.state = Closed
	}
}

// State returns the current state.
func (c *Context) State() State { return c.state }

// Reached returns the last state that was entered successfully. After a
// failure it tells how far initialization got.
func (c *Context) Reached() State { return c.reached }

func (c *Context) Instance() Instance { return c.instance }

// Diagnostics returns the attached debug messenger, or nil.
func (c *Context) Diagnostics() *Diagnostics { return c.diagnostics }

// DiagnosticCounts returns per-severity debug message counts, or nil when
// diagnostics were not enabled.
func (c *Context) DiagnosticCounts() map[Severity]uint64 {
	if c.bridge == nil {
		return nil
	}
	return c.bridge.Counts()
}

func (c *Context) Accelerator() Accelerator { return c.selection.Accelerator }

func (c *Context) AcceleratorProperties() *AcceleratorProperties { return c.selection.Properties }

func (c *Context) QueueFamily() QueueFamilyInfo { return c.selection.QueueFamily }

func (c *Context) Device() Device { return c.device }

func (c *Context) Queue() Queue { return c.queue }

func (c *Context) advance(s State) {
	c.state = s
	c.reached = s
}

func (c *Context) fail(err error) error {
	c.log.WithError(err).WithField("reached", c.reached.String()).Error("initialization failed")
	c.releases.unwind(c.log)
	c.selection = Selection{}
	c.state = Failed
	return err
}

func (c *Context) stage(name string, fn func(log logrus.FieldLogger) error) error {
	log := c.log.WithField("stage", name)
	start := hrtime.Now()
	err := fn(log)
	log.WithField("elapsed", hrtime.Since(start).String()).Debug("stage finished")
	return err
}
