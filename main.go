package main

import (
	"os"

	"github.com/GoAltRepo-API/GoAltRepo-API/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
