// Package gpu brings up a graphics API context: an instance with the
// platform's required extensions, an optional debug messenger, a physical
// accelerator exposing a graphics queue family, and a logical device with
// one graphics queue.
//
// The package only talks to the host through the interfaces in this file.
// The gpu/vkng package implements them over vkngwrapper.
package gpu

import (
	"fmt"

	"github.com/google/uuid"
)

// Version is a packed API version, major<<22 | minor<<12 | patch.
type Version uint32

// MakeVersion packs a version number.
func MakeVersion(major, minor, patch uint32) Version {
	return Version(major<<22 | minor<<12 | patch)
}

func (v Version) Major() uint32 { return uint32(v) >> 22 & 0x7f }
func (v Version) Minor() uint32 { return uint32(v) >> 12 & 0x3ff }
func (v Version) Patch() uint32 { return uint32(v) & 0xfff }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}

// QueueFlags describes the work a queue family accepts.
type QueueFlags uint32

const (
	QueueGraphics QueueFlags = 1 << iota
	QueueCompute
	QueueTransfer
	QueueSparseBinding
)

var queueFlagNames = []string{"Graphics", "Compute", "Transfer", "SparseBinding"}

func (f QueueFlags) String() string {
	return flagString(uint32(f), queueFlagNames)
}

// QueueFamily is one entry of an accelerator's queue family list.
type QueueFamily struct {
	Flags QueueFlags
	Count int
}

// AcceleratorProperties are the read-only properties of a physical accelerator.
type AcceleratorProperties struct {
	Name              string
	Type              string
	APIVersion        Version
	DriverVersion     Version
	VendorID          uint32
	DeviceID          uint32
	PipelineCacheUUID uuid.UUID
}

// FeatureSet is the opaque feature set an accelerator reports. It is handed
// back unmodified when the logical device is requested.
type FeatureSet interface {
	// Enabled returns the names of the supported features.
	Enabled() []string
}

// InstanceInfo is everything the host needs to create an instance.
type InstanceInfo struct {
	ApplicationName    string
	ApplicationVersion Version
	EngineName         string
	EngineVersion      Version
	APIVersion         Version

	Extensions []string
	Layers     []string

	// EnumeratePortability sets the portability enumeration creation flag.
	EnumeratePortability bool

	// Diagnostics, when set, is chained into the creation call so that
	// messages emitted while creating and destroying the instance are
	// delivered too.
	Diagnostics *MessengerConfig
}

// DeviceRequest describes the logical device to derive from an accelerator.
type DeviceRequest struct {
	QueueFamilyIndex int
	QueuePriorities  []float32
	Features         FeatureSet
}

// Loader is the entry point of the host API.
type Loader interface {
	AvailableExtensions() ([]string, error)
	AvailableLayers() ([]string, error)
	CreateInstance(info InstanceInfo) (Instance, error)
}

// Instance is a created API instance.
type Instance interface {
	// Accelerators enumerates the physical accelerators in host order.
	Accelerators() ([]Accelerator, error)

	// Diagnostics resolves the debug messenger entry points. It reports
	// false when they cannot be found on this instance.
	Diagnostics() (MessengerFactory, bool)

	Destroy()
}

// MessengerFactory creates debug messengers on the instance it was resolved from.
type MessengerFactory interface {
	CreateMessenger(config MessengerConfig) (Messenger, error)
}

// Messenger is an attached debug messenger.
type Messenger interface {
	Destroy()
}

// Accelerator is a physical accelerator. It is enumerated, never created
// or destroyed.
type Accelerator interface {
	Properties() (*AcceleratorProperties, error)
	Features() (FeatureSet, error)
	QueueFamilies() []QueueFamily
	CreateDevice(request DeviceRequest) (Device, error)
}

// Device is a logical device.
type Device interface {
	// Queue returns the queue at index within family. The queue is valid
	// until the device is destroyed.
	Queue(family, index int) Queue
	Destroy()
}

// Queue is a command submission queue owned by a Device.
type Queue interface{}
