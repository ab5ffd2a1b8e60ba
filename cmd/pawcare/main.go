// Package main is the entry point for the pawcare triage service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/pawcare/cmd/pawcare/app"
)

func main() {
	app.NewApp().Run()
}
