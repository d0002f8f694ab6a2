package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/meghashyamc/recordstore/cli"
)

func main() {
	godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
