// Command yarumotors serves the Discord interactions endpoint.
package main

import (
	"log"

	"github.com/yarumotors/bot/core/bootstrap"
	"github.com/yarumotors/bot/core/calendar"
	corecmd "github.com/yarumotors/bot/core/cmd"
	"github.com/yarumotors/bot/core/results"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		Modules: bootstrap.Modules{results.Module(calendar.Default())},
	})
	if err != nil {
		log.Fatal(err)
	}
}
