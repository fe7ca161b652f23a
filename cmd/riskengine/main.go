package main

import "defi-risk-engine/internal/cli"

func main() {
	cli.Execute()
}
