package gpu

import (
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

// QueueFamilyInfo locates the graphics queue family of one accelerator.
type QueueFamilyInfo struct {
	// GraphicsFamily is the index of the first family with a nonzero queue
	// count and graphics support, or -1.
	GraphicsFamily int
	// FamilyCount is the number of families the accelerator reported.
	FamilyCount int
}

// Valid reports whether GraphicsFamily indexes a reported family.
func (q QueueFamilyInfo) Valid() bool {
	return q.GraphicsFamily >= 0 && q.GraphicsFamily < q.FamilyCount
}

// FindGraphicsFamily scans families in order for the first one that has
// queues and supports graphics submission.
func FindGraphicsFamily(families []QueueFamily) QueueFamilyInfo {
	info := QueueFamilyInfo{GraphicsFamily: -1, FamilyCount: len(families)}
	for idx, family := range families {
		if family.Count > 0 && family.Flags&QueueGraphics != 0 {
			info.GraphicsFamily = idx
			break
		}
	}
	return info
}

// Selection is the accelerator chosen by SelectAccelerator.
type Selection struct {
	Accelerator Accelerator
	QueueFamily QueueFamilyInfo
	// Properties is nil if the host could not report them.
	Properties *AcceleratorProperties
}

// AcceleratorReport describes one enumerated accelerator.
type AcceleratorReport struct {
	Accelerator   Accelerator
	Properties    *AcceleratorProperties
	PropertiesErr error
	Features      []string
	FeaturesErr   error
	QueueFamily   QueueFamilyInfo
}

// DescribeAccelerators enumerates the accelerators of instance and
// introspects each. Property and feature query failures are recorded in
// the report, not returned.
func DescribeAccelerators(instance Instance) ([]AcceleratorReport, error) {
	accelerators, err := instance.Accelerators()
	if err != nil {
		return nil, err
	}

	reports := make([]AcceleratorReport, 0, len(accelerators))
	for _, accelerator := range accelerators {
		report := AcceleratorReport{
			Accelerator: accelerator,
			QueueFamily: FindGraphicsFamily(accelerator.QueueFamilies()),
		}
		report.Properties, report.PropertiesErr = accelerator.Properties()

		features, err := accelerator.Features()
		if err != nil {
			report.FeaturesErr = err
		} else if features != nil {
			report.Features = features.Enabled()
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// SelectAccelerator picks the first accelerator, in enumeration order, that
// exposes a graphics queue family. Accelerators are not ranked otherwise.
func SelectAccelerator(instance Instance, log logrus.FieldLogger) (Selection, error) {
	reports, err := DescribeAccelerators(instance)
	if err != nil {
		return Selection{}, stageError(ErrNoAcceleratorsFound, err, "enumerate physical accelerators")
	}
	if len(reports) == 0 {
		return Selection{}, errors.WithStack(ErrNoAcceleratorsFound)
	}

	for idx, report := range reports {
		entry := log.WithField("accelerator", idx)
		logReport(entry, report)

		if !report.QueueFamily.Valid() {
			entry.Debug("accelerator has no graphics queue family")
			continue
		}
		return Selection{
			Accelerator: report.Accelerator,
			QueueFamily: report.QueueFamily,
			Properties:  report.Properties,
		}, nil
	}
	return Selection{}, errors.Wrapf(ErrNoSuitableAccelerator, "checked %d accelerators", len(reports))
}

func logReport(entry logrus.FieldLogger, report AcceleratorReport) {
	if report.PropertiesErr != nil {
		entry.WithError(report.PropertiesErr).Warn("could not get physical device properties")
	} else if p := report.Properties; p != nil {
		entry.WithFields(logrus.Fields{
			"name":           p.Name,
			"type":           p.Type,
			"api_version":    p.APIVersion.String(),
			"driver_version": p.DriverVersion.String(),
			"vendor_id":      p.VendorID,
			"device_id":      p.DeviceID,
			"cache_uuid":     p.PipelineCacheUUID.String(),
		}).Info("found physical device")
	}

	if report.FeaturesErr != nil {
		entry.WithError(report.FeaturesErr).Warn("could not get physical device features")
	} else {
		entry.WithField("features", report.Features).Debug("physical device features")
	}
}
