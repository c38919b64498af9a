package gpu

import "github.com/cockroachdb/errors"

// GraphicsQueuePriority is the priority of the single graphics queue.
const GraphicsQueuePriority float32 = 1.0

// CreateLogicalDevice derives a logical device with one graphics queue from
// accelerator and returns the device together with that queue. The
// accelerator's full feature set is requested as reported; no device
// extensions or layers are enabled.
func CreateLogicalDevice(accelerator Accelerator, family QueueFamilyInfo) (Device, Queue, error) {
	if !family.Valid() {
		return nil, nil, errors.Wrapf(ErrLogicalDeviceCreationFailed,
			"queue family %d out of range [0, %d)", family.GraphicsFamily, family.FamilyCount)
	}

	features, err := accelerator.Features()
	if err != nil {
		return nil, nil, stageError(ErrLogicalDeviceCreationFailed, err, "get physical device features")
	}

	device, err := accelerator.CreateDevice(DeviceRequest{
		QueueFamilyIndex: family.GraphicsFamily,
		QueuePriorities:  []float32{GraphicsQueuePriority},
		Features:         features,
	})
	if err != nil {
		return nil, nil, stageError(ErrLogicalDeviceCreationFailed, err, "create device on queue family %d", family.GraphicsFamily)
	}
	if device == nil {
		return nil, nil, errors.Wrap(ErrLogicalDeviceCreationFailed, "host returned no device")
	}

	return device, device.Queue(family.GraphicsFamily, 0), nil
}
