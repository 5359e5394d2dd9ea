package main

import "github.com/amine-amaach/uatypegen/internal/cli"

func main() {
	cli.Execute()
}
