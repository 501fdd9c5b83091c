// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"flag"
	"os"

	"github.com/devblok/frametech/core"
	log "github.com/sirupsen/logrus"
)

var (
	configFile = flag.String("config", "frametech.toml", "Configuration file")
	debug      = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	indent     = flag.Bool("indent", false, "Indent the JSON output")
)

func main() {
	flag.Parse()

	cfg, err := core.LoadConfiguration(*configFile, "")
	if err != nil {
		log.Fatal(err)
	}
	if *debug {
		cfg.Instance.Debug = true
	}
	log.SetLevel(cfg.LogLevel())
	log.SetOutput(os.Stderr)

	devices, err := core.QueryDevices(cfg, log.StandardLogger())
	if err != nil {
		log.Fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	if *indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(devices); err != nil {
		log.Fatal(err)
	}
}
