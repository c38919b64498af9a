// Command enumerate lists the accelerators the system Vulkan loader exposes
// without opening a window.
package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/vkngwrapper/bringup/config"
	"github.com/vkngwrapper/bringup/gpu"
	"github.com/vkngwrapper/bringup/gpu/vkng"
)

func enumerate(log *logrus.Logger, cfg config.Config) error {
	loader, err := vkng.NewSystemLoader()
	if err != nil {
		return err
	}

	opts := cfg.InstanceOptions(nil)
	opts.EnableDiagnostics = false
	instance, err := gpu.CreateInstance(loader, opts, log)
	if err != nil {
		return err
	}
	defer instance.Destroy()

	reports, err := gpu.DescribeAccelerators(instance)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		return gpu.ErrNoAcceleratorsFound
	}

	for i, report := range reports {
		entry := log.WithField("index", i)
		if report.PropertiesErr != nil {
			entry.WithError(report.PropertiesErr).Warn("could not read properties")
		} else {
			entry = entry.WithFields(logrus.Fields{
				"name":        report.Properties.Name,
				"type":        report.Properties.Type,
				"api_version": report.Properties.APIVersion,
				"driver":      report.Properties.DriverVersion,
				"vendor_id":   report.Properties.VendorID,
				"device_id":   report.Properties.DeviceID,
			})
		}
		if report.FeaturesErr == nil {
			entry = entry.WithField("features", len(report.Features))
		}
		entry.WithFields(logrus.Fields{
			"graphics_family": report.QueueFamily.GraphicsFamily,
			"families":        report.QueueFamily.FamilyCount,
			"suitable":        report.QueueFamily.Valid(),
		}).Info("accelerator")
	}
	return nil
}

func main() {
	log := logrus.New()

	cfg, err := config.Load(config.EnvFile())
	if err != nil {
		log.Fatalf("%+v", err)
	}
	log.SetLevel(cfg.LogLevel)

	if err := enumerate(log, cfg); err != nil {
		log.Errorf("%+v", err)
		os.Exit(1)
	}
}
