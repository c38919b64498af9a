package gpu_test

import (
	"fmt"
	"sync"

	"github.com/vkngwrapper/bringup/gpu"
)

// recorder collects create/destroy events in the order they happen.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeLoader struct {
	rec *recorder

	extensions []string
	layers     []string
	extErr     error
	layerErr   error
	createErr  error

	// noDiagnostics makes the debug messenger entry points unresolvable.
	noDiagnostics bool
	messengerErr  error

	accelerators []*fakeAccelerator
	enumErr      error

	created   []gpu.InstanceInfo
	instances []*fakeInstance
	messages  []gpu.MessengerConfig
}

func newLoader() *fakeLoader {
	return &fakeLoader{
		rec:        &recorder{},
		extensions: []string{"VK_KHR_surface", "VK_KHR_xlib_surface", gpu.DiagnosticsExtensionName},
		layers:     []string{"VK_LAYER_KHRONOS_validation"},
	}
}

func (l *fakeLoader) AvailableExtensions() ([]string, error) {
	if l.extErr != nil {
		return nil, l.extErr
	}
	return l.extensions, nil
}

func (l *fakeLoader) AvailableLayers() ([]string, error) {
	if l.layerErr != nil {
		return nil, l.layerErr
	}
	return l.layers, nil
}

func (l *fakeLoader) CreateInstance(info gpu.InstanceInfo) (gpu.Instance, error) {
	l.created = append(l.created, info)
	if l.createErr != nil {
		return nil, l.createErr
	}
	l.rec.add("create instance")
	inst := &fakeInstance{loader: l}
	l.instances = append(l.instances, inst)
	return inst, nil
}

type fakeInstance struct {
	loader    *fakeLoader
	destroyed bool
}

func (i *fakeInstance) Accelerators() ([]gpu.Accelerator, error) {
	if i.destroyed {
		panic("instance used after destroy")
	}
	if i.loader.enumErr != nil {
		return nil, i.loader.enumErr
	}
	out := make([]gpu.Accelerator, 0, len(i.loader.accelerators))
	for _, a := range i.loader.accelerators {
		a.rec = i.loader.rec
		out = append(out, a)
	}
	return out, nil
}

func (i *fakeInstance) Diagnostics() (gpu.MessengerFactory, bool) {
	if i.loader.noDiagnostics {
		return nil, false
	}
	return i, true
}

func (i *fakeInstance) CreateMessenger(config gpu.MessengerConfig) (gpu.Messenger, error) {
	if i.loader.messengerErr != nil {
		return nil, i.loader.messengerErr
	}
	i.loader.messages = append(i.loader.messages, config)
	i.loader.rec.add("create messenger")
	return &fakeMessenger{instance: i}, nil
}

func (i *fakeInstance) Destroy() {
	if i.destroyed {
		panic("instance destroyed twice")
	}
	i.destroyed = true
	i.loader.rec.add("destroy instance")
}

type fakeMessenger struct {
	instance *fakeInstance
}

func (m *fakeMessenger) Destroy() {
	if m.instance.destroyed {
		panic("messenger destroyed after its instance")
	}
	m.instance.loader.rec.add("destroy messenger")
}

type fakeFeatures []string

func (f fakeFeatures) Enabled() []string { return f }

type fakeAccelerator struct {
	rec *recorder

	name      string
	families  []gpu.QueueFamily
	features  fakeFeatures
	propsErr  error
	featErr   error
	createErr error

	requests []gpu.DeviceRequest
	devices  []*fakeDevice
}

func graphicsAccelerator(name string) *fakeAccelerator {
	return &fakeAccelerator{
		name:     name,
		families: []gpu.QueueFamily{{Flags: gpu.QueueGraphics | gpu.QueueCompute | gpu.QueueTransfer, Count: 16}},
		features: fakeFeatures{"GeometryShader", "SamplerAnisotropy"},
	}
}

func (a *fakeAccelerator) Properties() (*gpu.AcceleratorProperties, error) {
	if a.propsErr != nil {
		return nil, a.propsErr
	}
	return &gpu.AcceleratorProperties{
		Name:       a.name,
		Type:       "DiscreteGPU",
		APIVersion: gpu.MakeVersion(1, 3, 250),
		VendorID:   0x10de,
		DeviceID:   0x2684,
	}, nil
}

func (a *fakeAccelerator) Features() (gpu.FeatureSet, error) {
	if a.featErr != nil {
		return nil, a.featErr
	}
	return a.features, nil
}

func (a *fakeAccelerator) QueueFamilies() []gpu.QueueFamily {
	return a.families
}

func (a *fakeAccelerator) CreateDevice(request gpu.DeviceRequest) (gpu.Device, error) {
	a.requests = append(a.requests, request)
	if a.createErr != nil {
		return nil, a.createErr
	}
	if a.rec != nil {
		a.rec.add("create device %s", a.name)
	}
	d := &fakeDevice{accelerator: a}
	a.devices = append(a.devices, d)
	return d, nil
}

type fakeQueue struct {
	Family, Index int
}

type fakeDevice struct {
	accelerator *fakeAccelerator
	destroyed   bool
	queues      []fakeQueue
}

func (d *fakeDevice) Queue(family, index int) gpu.Queue {
	if d.destroyed {
		panic("device used after destroy")
	}
	q := fakeQueue{Family: family, Index: index}
	d.queues = append(d.queues, q)
	return q
}

func (d *fakeDevice) Destroy() {
	if d.destroyed {
		panic("device destroyed twice")
	}
	d.destroyed = true
	if d.accelerator.rec != nil {
		d.accelerator.rec.add("destroy device")
	}
}
