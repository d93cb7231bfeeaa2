package main

import "asset-catalog/internal/cli"

func main() {
	cli.Execute()
}
