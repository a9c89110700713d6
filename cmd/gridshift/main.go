package main

import (
	"gridshift/internal/cli"
)

func main() {
	cli.Execute()
}
