package gpu

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

const (
	// DiagnosticsExtensionName is the instance extension providing debug messengers.
	DiagnosticsExtensionName = "VK_EXT_debug_utils"

	// PortabilityEnumerationExtensionName lets non-conformant implementations
	// (MoltenVK and friends) show up during enumeration.
	PortabilityEnumerationExtensionName = "VK_KHR_portability_enumeration"
)

// InstanceOptions configures CreateInstance.
type InstanceOptions struct {
	ApplicationName    string
	ApplicationVersion Version
	EngineName         string
	EngineVersion      Version
	APIVersion         Version

	// PlatformExtensions are the extensions the window system requires.
	PlatformExtensions []string

	// EnableDiagnostics adds the debug utils extension, the validation
	// layers and a debug messenger chained into instance creation.
	EnableDiagnostics bool
	ValidationLayers  []string
	Diagnostics       MessengerConfig

	// Portability enables portability enumeration when the host offers it.
	Portability bool
}

// CreateInstance validates the requested extensions and layers and creates
// the instance. No partially created instance is ever returned.
func CreateInstance(loader Loader, opts InstanceOptions, log logrus.FieldLogger) (Instance, error) {
	prober := NewProber(loader)

	extensions := appendUnique(nil, opts.PlatformExtensions...)
	if opts.EnableDiagnostics {
		extensions = appendUnique(extensions, DiagnosticsExtensionName)
	}

	missingExt, err := prober.MissingExtensions(extensions)
	if err != nil {
		return nil, stageError(ErrUnsupportedExtensions, err, "enumerate instance extensions")
	}
	if len(missingExt) > 0 {
		return nil, errors.Wrapf(ErrUnsupportedExtensions, "missing %s", strings.Join(missingExt, ", "))
	}

	info := InstanceInfo{
		ApplicationName:    opts.ApplicationName,
		ApplicationVersion: opts.ApplicationVersion,
		EngineName:         opts.EngineName,
		EngineVersion:      opts.EngineVersion,
		APIVersion:         opts.APIVersion,
	}

	if opts.Portability {
		supported, err := prober.HasExtension(PortabilityEnumerationExtensionName)
		switch {
		case err != nil:
			log.WithError(err).Warn("could not query portability enumeration support")
		case supported:
			extensions = appendUnique(extensions, PortabilityEnumerationExtensionName)
			info.EnumeratePortability = true
		}
	}

	if opts.EnableDiagnostics {
		missingLayers, err := prober.MissingLayers(opts.ValidationLayers)
		if err != nil {
			return nil, stageError(ErrUnsupportedLayers, err, "enumerate instance layers")
		}
		if len(missingLayers) > 0 {
			return nil, errors.Wrapf(ErrUnsupportedLayers, "missing %s; install the LunarG Vulkan SDK", strings.Join(missingLayers, ", "))
		}
		info.Layers = append(info.Layers, opts.ValidationLayers...)

		diagnostics := opts.Diagnostics
		info.Diagnostics = &diagnostics
	}
	info.Extensions = extensions

	log.WithFields(logrus.Fields{
		"extensions":  info.Extensions,
		"layers":      info.Layers,
		"api_version": info.APIVersion.String(),
		"portability": info.EnumeratePortability,
	}).Debug("creating instance")

	instance, err := loader.CreateInstance(info)
	if err != nil {
		return nil, stageError(ErrInstanceCreationFailed, err, "create instance for %q", opts.ApplicationName)
	}
	if instance == nil {
		return nil, errors.Wrapf(ErrInstanceCreationFailed, "create instance for %q: host returned no instance", opts.ApplicationName)
	}
	return instance, nil
}

func appendUnique(dst []string, names ...string) []string {
outer:
	for _, name := range names {
		for _, have := range dst {
			if have == name {
				continue outer
			}
		}
		dst = append(dst, name)
	}
	return dst
}
