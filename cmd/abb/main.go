package main

import "github.com/ogulcanaydogan/aussiebb-go/internal/cli"

func main() {
	cli.Execute()
}
