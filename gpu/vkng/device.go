package vkng

import (
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/core/v3/loader"

	"github.com/vkngwrapper/bringup/gpu"
)

// Accelerator is a gpu.Accelerator wrapping a physical device.
type Accelerator struct {
	instance core1_0.CoreInstanceDriver
	device   core1_0.PhysicalDevice
}

func (a *Accelerator) Properties() (*gpu.AcceleratorProperties, error) {
	properties, err := a.instance.GetPhysicalDeviceProperties(a.device)
	if err != nil {
		return nil, err
	}
	return &gpu.AcceleratorProperties{
		Name:              properties.DriverName,
		Type:              properties.DriverType.String(),
		APIVersion:        gpu.Version(properties.APIVersion),
		DriverVersion:     gpu.Version(properties.DriverVersion),
		VendorID:          uint32(properties.VendorID),
		DeviceID:          uint32(properties.DeviceID),
		PipelineCacheUUID: properties.PipelineCacheUUID,
	}, nil
}

func (a *Accelerator) Features() (gpu.FeatureSet, error) {
	features := a.instance.GetPhysicalDeviceFeatures(a.device)
	if features == nil {
		return nil, errors.New("physical device reported no features")
	}
	return &featureSet{features: features}, nil
}

func (a *Accelerator) QueueFamilies() []gpu.QueueFamily {
	families := a.instance.GetPhysicalDeviceQueueFamilyProperties(a.device)
	out := make([]gpu.QueueFamily, 0, len(families))
	for _, family := range families {
		out = append(out, gpu.QueueFamily{
			Flags: queueFlags(family.QueueFlags),
			Count: int(family.QueueCount),
		})
	}
	return out
}

func (a *Accelerator) CreateDevice(request gpu.DeviceRequest) (gpu.Device, error) {
	options := core1_0.DeviceCreateInfo{
		QueueCreateInfos: []core1_0.DeviceQueueCreateInfo{
			{
				QueueFamilyIndex: request.QueueFamilyIndex,
				QueuePriorities:  request.QueuePriorities,
			},
		},
	}

	if request.Features != nil {
		features, ok := request.Features.(*featureSet)
		if !ok {
			return nil, errors.Newf("feature set %T was not reported by this host", request.Features)
		}
		options.EnabledFeatures = features.features
	}

	handle, _, err := a.instance.CreateDevice(a.device, nil, options)
	if err != nil {
		return nil, err
	}

	deviceDriver, err := a.instance.BuildDeviceDriver(handle)
	if err != nil {
		err = errors.Wrap(err, "build device driver")
		if destroyErr := destroyDeviceHandle(a.instance.Loader(), handle); destroyErr != nil {
			err = errors.WithSecondaryError(err, destroyErr)
		}
		return nil, err
	}
	return &Device{driver: deviceDriver}, nil
}

// destroyDeviceHandle releases a device that never got a driver.
func destroyDeviceHandle(instanceLoader loader.Loader, handle core1_0.Device) error {
	deviceLoader, err := instanceLoader.CreateDeviceLoader(handle.Handle())
	if err != nil {
		return errors.Wrap(err, "device handle leaked")
	}
	deviceLoader.VkDestroyDevice(handle.Handle(), nil)
	return nil
}

// Device is a gpu.Device wrapping a vkngwrapper device driver.
type Device struct {
	driver core1_0.CoreDeviceDriver
}

func (d *Device) Queue(family, index int) gpu.Queue {
	return d.driver.GetQueue(family, index)
}

func (d *Device) Destroy() {
	d.driver.DestroyDevice(nil)
}

// featureSet carries the physical device features unmodified into device
// creation.
type featureSet struct {
	features *core1_0.PhysicalDeviceFeatures
}

// Enabled lists the boolean feature fields that are set.
func (f *featureSet) Enabled() []string {
	var names []string
	v := reflect.ValueOf(f.features).Elem()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if field.Kind() == reflect.Bool && field.Bool() {
			names = append(names, v.Type().Field(i).Name)
		}
	}
	return names
}

func queueFlags(flags core1_0.QueueFlags) gpu.QueueFlags {
	var out gpu.QueueFlags
	if flags&core1_0.QueueGraphics != 0 {
		out |= gpu.QueueGraphics
	}
	if flags&core1_0.QueueCompute != 0 {
		out |= gpu.QueueCompute
	}
	if flags&core1_0.QueueTransfer != 0 {
		out |= gpu.QueueTransfer
	}
	if flags&core1_0.QueueSparseBinding != 0 {
		out |= gpu.QueueSparseBinding
	}
	return out
}
