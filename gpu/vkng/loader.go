// Package vkng implements the gpu host interfaces over vkngwrapper.
package vkng

import (
	"sort"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/core/v3/loader"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"

	"github.com/vkngwrapper/bringup/gpu"
)

// Loader is a gpu.Loader backed by a vkngwrapper global driver.
type Loader struct {
	driver core1_0.GlobalDriver
}

// NewLoader builds a loader from a vkGetInstanceProcAddr pointer, such as
// the one returned by sdl.VulkanGetVkGetInstanceProcAddr.
func NewLoader(procAddr unsafe.Pointer) (*Loader, error) {
	driver, err := core.CreateDriverFromProcAddr(procAddr)
	if err != nil {
		return nil, errors.Wrap(err, "load vulkan driver")
	}
	return &Loader{driver: driver}, nil
}

// NewSystemLoader builds a loader from the system Vulkan library.
func NewSystemLoader() (*Loader, error) {
	driver, err := core.CreateSystemDriver()
	if err != nil {
		return nil, errors.Wrap(err, "load system vulkan driver")
	}
	return &Loader{driver: driver}, nil
}

func (l *Loader) AvailableExtensions() ([]string, error) {
	extensions, _, err := l.driver.AvailableExtensions()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(extensions))
	for name := range extensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (l *Loader) AvailableLayers() ([]string, error) {
	layers, _, err := l.driver.AvailableLayers()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(layers))
	for name := range layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (l *Loader) CreateInstance(info gpu.InstanceInfo) (gpu.Instance, error) {
	options := core1_0.InstanceCreateInfo{
		ApplicationName:       info.ApplicationName,
		ApplicationVersion:    common.Version(info.ApplicationVersion),
		EngineName:            info.EngineName,
		EngineVersion:         common.Version(info.EngineVersion),
		APIVersion:            common.APIVersion(info.APIVersion),
		EnabledExtensionNames: info.Extensions,
		EnabledLayerNames:     info.Layers,
	}

	if info.EnumeratePortability {
		options.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if info.Diagnostics != nil {
		options.Next = messengerCreateInfo(*info.Diagnostics)
	}

	handle, _, err := l.driver.CreateInstance(nil, options)
	if err != nil {
		return nil, err
	}

	instanceDriver, err := l.driver.BuildInstanceDriver(handle)
	if err != nil {
		err = errors.Wrap(err, "build instance driver")
		if destroyErr := destroyInstanceHandle(l.driver.Loader(), handle); destroyErr != nil {
			err = errors.WithSecondaryError(err, destroyErr)
		}
		return nil, err
	}
	return &Instance{driver: instanceDriver}, nil
}

// destroyInstanceHandle releases an instance that never got a driver.
func destroyInstanceHandle(global loader.Loader, handle core1_0.Instance) error {
	instanceLoader, err := global.CreateInstanceLoader(handle.Handle())
	if err != nil {
		return errors.Wrap(err, "instance handle leaked")
	}
	instanceLoader.VkDestroyInstance(handle.Handle(), nil)
	return nil
}

// Instance is a gpu.Instance wrapping a vkngwrapper instance driver.
type Instance struct {
	driver core1_0.CoreInstanceDriver
}

func (i *Instance) Accelerators() ([]gpu.Accelerator, error) {
	devices, _, err := i.driver.EnumeratePhysicalDevices()
	if err != nil {
		return nil, err
	}
	out := make([]gpu.Accelerator, 0, len(devices))
	for _, device := range devices {
		out = append(out, &Accelerator{instance: i.driver, device: device})
	}
	return out, nil
}

// Diagnostics resolves the debug utils extension driver. It is only
// available when VK_EXT_debug_utils was enabled on the instance.
func (i *Instance) Diagnostics() (gpu.MessengerFactory, bool) {
	if !i.driver.Instance().IsInstanceExtensionActive(ext_debug_utils.ExtensionName) {
		return nil, false
	}
	driver := ext_debug_utils.CreateExtensionDriverFromCoreDriver(i.driver)
	if driver == nil {
		return nil, false
	}
	return &messengerFactory{driver: driver}, true
}

func (i *Instance) Destroy() {
	i.driver.DestroyInstance(nil)
}
