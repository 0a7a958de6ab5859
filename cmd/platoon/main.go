// Package main provides the entry point for every platoon process.
package main

import (
	"os"

	"github.com/TorbenSp09/TruckPlatoonPub/cmd/platoon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
