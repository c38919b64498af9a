package vkng

import (
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"

	"github.com/vkngwrapper/bringup/gpu"
)

type messengerFactory struct {
	driver ext_debug_utils.ExtensionDriver
}

func (f *messengerFactory) CreateMessenger(config gpu.MessengerConfig) (gpu.Messenger, error) {
	messenger, _, err := f.driver.CreateDebugUtilsMessenger(nil, messengerCreateInfo(config))
	if err != nil {
		return nil, err
	}
	return &debugMessenger{driver: f.driver, messenger: messenger}, nil
}

type debugMessenger struct {
	driver    ext_debug_utils.ExtensionDriver
	messenger ext_debug_utils.DebugUtilsMessenger
}

func (m *debugMessenger) Destroy() {
	m.driver.DestroyDebugUtilsMessenger(m.messenger, nil)
}

func messengerCreateInfo(config gpu.MessengerConfig) ext_debug_utils.DebugUtilsMessengerCreateInfo {
	callback := config.Callback
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: messageSeverity(config.Severities),
		MessageType:     messageType(config.Types),
		UserCallback: func(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
			if callback != nil && data != nil {
				callback(gpu.Message{
					Severity: fromMessageSeverity(severity),
					Type:     fromMessageType(msgType),
					ID:       data.MessageIDName,
					Text:     data.Message,
				})
			}
			// Never abort the call that triggered the message.
			return false
		},
	}
}

var severityPairs = []struct {
	gpu gpu.Severity
	ext ext_debug_utils.DebugUtilsMessageSeverityFlags
}{
	{gpu.SeverityVerbose, ext_debug_utils.SeverityVerbose},
	{gpu.SeverityInfo, ext_debug_utils.SeverityInfo},
	{gpu.SeverityWarning, ext_debug_utils.SeverityWarning},
	{gpu.SeverityError, ext_debug_utils.SeverityError},
}

var typePairs = []struct {
	gpu gpu.MessageType
	ext ext_debug_utils.DebugUtilsMessageTypeFlags
}{
	{gpu.MessageGeneral, ext_debug_utils.TypeGeneral},
	{gpu.MessageValidation, ext_debug_utils.TypeValidation},
	{gpu.MessagePerformance, ext_debug_utils.TypePerformance},
}

func messageSeverity(s gpu.Severity) ext_debug_utils.DebugUtilsMessageSeverityFlags {
	var out ext_debug_utils.DebugUtilsMessageSeverityFlags
	for _, p := range severityPairs {
		if s&p.gpu != 0 {
			out |= p.ext
		}
	}
	return out
}

func fromMessageSeverity(s ext_debug_utils.DebugUtilsMessageSeverityFlags) gpu.Severity {
	var out gpu.Severity
	for _, p := range severityPairs {
		if s&p.ext != 0 {
			out |= p.gpu
		}
	}
	return out
}

func messageType(t gpu.MessageType) ext_debug_utils.DebugUtilsMessageTypeFlags {
	var out ext_debug_utils.DebugUtilsMessageTypeFlags
	for _, p := range typePairs {
		if t&p.gpu != 0 {
			out |= p.ext
		}
	}
	return out
}

func fromMessageType(t ext_debug_utils.DebugUtilsMessageTypeFlags) gpu.MessageType {
	var out gpu.MessageType
	for _, p := range typePairs {
		if t&p.ext != 0 {
			out |= p.gpu
		}
	}
	return out
}
