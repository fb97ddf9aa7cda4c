package main // Entry point package

import "github.com/iliyamo/car-dealership/internal/cli"

func main() {
	cli.Execute()
}
