package main

import (
	"os"

	"github.com/cinetick/booking-platform/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		os.Exit(1)
	}
}
