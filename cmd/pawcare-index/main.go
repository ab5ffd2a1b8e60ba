// Package main is the entry point of the offline document indexer.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/pawcare/cmd/pawcare-index/app"
)

func main() {
	app.NewApp().Run()
}
