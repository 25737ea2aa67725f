package main

import (
	"os"

	"github.com/coastcare/coastal-alerts/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
