package main

import "github.com/garyjia/invoice-agent/internal/cli"

var version = "dev"

func main() {
	cli.Execute(version)
}
