// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"flag"
	"os"

	"github.com/devblok/frametech/core"
	"github.com/gotk3/gotk3/gtk"
	log "github.com/sirupsen/logrus"
)

var configFile = flag.String("config", "frametech.toml", "Configuration file")

func init() {
	gtk.Init(&os.Args)
}

func main() {
	flag.Parse()

	cfg, err := core.LoadConfiguration(*configFile, "")
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(cfg.LogLevel())

	app, err := buildInterface(cfg)
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(app.Run([]string{os.Args[0]}))
}
