package main

import "github.com/jhellqvist/casambid/internal/cli"

func main() {
	cli.Execute()
}
