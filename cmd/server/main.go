package main

import (
	"github.com/flashtalk/flashtalk/app"
)

func main() {
	app.New(nil).Run()
}
