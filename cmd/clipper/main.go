package main

import "github.com/forPelevin/clipper/internal/cli"

func main() {
	cli.Main()
}
