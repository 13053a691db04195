package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/kart-io/agrichat/cmd/agrichat/app"
)

func main() {
	app.NewApp().Run()
}
