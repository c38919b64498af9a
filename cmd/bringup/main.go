package main

import (
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/vkngwrapper/bringup/config"
	"github.com/vkngwrapper/bringup/gpu"
	"github.com/vkngwrapper/bringup/gpu/vkng"
	"github.com/vkngwrapper/bringup/window"
)

type BringupApplication struct {
	cfg    config.Config
	log    *logrus.Logger
	window *window.Window
	ctx    *gpu.Context
}

func (app *BringupApplication) Run() error {
	defer app.cleanup()

	if err := app.initWindow(); err != nil {
		return err
	}

	if err := app.initVulkan(); err != nil {
		return err
	}

	return app.mainLoop()
}

func (app *BringupApplication) initWindow() error {
	w, err := window.Open(app.cfg.WindowTitle, app.cfg.WindowWidth, app.cfg.WindowHeight)
	if err != nil {
		return err
	}
	app.window = w
	return nil
}

func (app *BringupApplication) initVulkan() error {
	loader, err := vkng.NewLoader(app.window.ProcAddr())
	if err != nil {
		return err
	}

	app.ctx = gpu.NewContext(app.log)
	return app.ctx.Init(loader, app.cfg.ContextOptions(app.window.RequiredInstanceExtensions()))
}

func (app *BringupApplication) mainLoop() error {
	entry := app.log.WithField("queue_family", app.ctx.QueueFamily().GraphicsFamily)
	if props := app.ctx.AcceleratorProperties(); props != nil {
		entry = entry.WithFields(logrus.Fields{
			"accelerator": props.Name,
			"api_version": props.APIVersion,
			"device_id":   props.DeviceID,
		})
	}
	entry.Info("context ready; press escape or close the window to exit")

	for !app.window.ShouldClose() {
		app.window.PollEvents()
		sdl.Delay(16)
	}
	return nil
}

func (app *BringupApplication) cleanup() {
	if app.ctx != nil {
		if counts := app.ctx.DiagnosticCounts(); counts != nil {
			app.log.WithFields(logrus.Fields{
				"errors":   counts[gpu.SeverityError],
				"warnings": counts[gpu.SeverityWarning],
			}).Info("diagnostic messages received")
		}
		app.ctx.Close()
	}

	if app.window != nil {
		app.window.Destroy()
	}
}

func main() {
	runtime.LockOSThread()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(config.EnvFile())
	if err != nil {
		log.Fatalf("%+v", err)
	}
	log.SetLevel(cfg.LogLevel)

	app := &BringupApplication{cfg: cfg, log: log}
	if err := app.Run(); err != nil {
		log.Errorf("%+v", err)
		os.Exit(1)
	}
}
