// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"fmt"
	"strings"

	"github.com/devblok/frametech/core"
	"github.com/devblok/frametech/device"
	"github.com/gobuffalo/packr"
	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// StaticResources holds the interface definitions
var StaticResources = packr.NewBox("./resources")

// Device list columns
const (
	columnName = iota
	columnType
	columnSuitable
	columnMemory
	columnExtensions
)

var columnTitles = []string{"Name", "Type", "Suitable", "Memory (MiB)", "Extensions"}

func buildInterface(cfg core.Configuration) (*gtk.Application, error) {
	app, err := gtk.ApplicationNew("org.devblok.frametechinspect", glib.APPLICATION_FLAGS_NONE)
	if err != nil {
		return nil, err
	}

	app.Connect("startup", func() {
		log.Info("Application starting")
	})

	app.Connect("activate", func() {
		log.Info("Application activating")

		win, err := mainWindow(cfg)
		if err != nil {
			log.Error(err)
			app.Quit()
			return
		}
		win.SetDefaultSize(800, 480)
		win.ShowAll()
		app.AddWindow(win)
	})

	app.Connect("shutdown", func() {
		log.Info("Application shutting down")
	})
	return app, nil
}

func mainWindow(cfg core.Configuration) (*gtk.Window, error) {
	resource, err := StaticResources.FindString("frametechinspect.glade")
	if err != nil {
		return nil, err
	}

	builder, err := gtk.BuilderNew()
	if err != nil {
		return nil, err
	}
	if err := builder.AddFromString(resource); err != nil {
		return nil, errors.Wrap(err, "loading interface")
	}

	win, err := object[*gtk.Window](builder, "mainWindow")
	if err != nil {
		return nil, err
	}
	view, err := object[*gtk.TreeView](builder, "deviceView")
	if err != nil {
		return nil, err
	}
	status, err := object[*gtk.Label](builder, "statusLabel")
	if err != nil {
		return nil, err
	}

	devices, err := core.QueryDevices(cfg, log.StandardLogger())
	if err != nil {
		status.SetText(err.Error())
		return win, nil
	}
	if err := fillDevices(view, devices); err != nil {
		return nil, err
	}
	status.SetText(fmt.Sprintf("%d device(s), Vulkan %s", len(devices), apiVersion()))
	return win, nil
}

func object[T any](builder *gtk.Builder, id string) (T, error) {
	var zero T
	obj, err := builder.GetObject(id)
	if err != nil {
		return zero, errors.Wrap(err, id)
	}
	t, ok := obj.(T)
	if !ok {
		return zero, errors.Errorf("failed to cast %s from builder", id)
	}
	return t, nil
}

func fillDevices(view *gtk.TreeView, devices []device.PhysicalDeviceInfo) error {
	store, err := gtk.ListStoreNew(glib.TYPE_STRING, glib.TYPE_STRING, glib.TYPE_STRING, glib.TYPE_STRING, glib.TYPE_STRING)
	if err != nil {
		return err
	}

	for idx, title := range columnTitles {
		renderer, err := gtk.CellRendererTextNew()
		if err != nil {
			return err
		}
		column, err := gtk.TreeViewColumnNewWithAttribute(title, renderer, "text", idx)
		if err != nil {
			return err
		}
		view.AppendColumn(column)
	}

	for _, d := range devices {
		suitable := "no"
		if d.Suitable {
			suitable = "yes"
		}
		if err := store.Set(store.Append(),
			[]int{columnName, columnType, columnSuitable, columnMemory, columnExtensions},
			[]interface{}{
				d.Name,
				d.Type,
				suitable,
				fmt.Sprintf("%d", d.Memory/(1<<20)),
				strings.Join(d.Extensions, ", "),
			}); err != nil {
			return err
		}
	}
	view.SetModel(store)
	return nil
}

func apiVersion() string {
	v := core.APIVersion
	return fmt.Sprintf("%d.%d.%d", v>>22, (v>>12)&0x3ff, v&0xfff)
}
