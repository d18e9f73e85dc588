package main

import "github.com/devicelab-dev/contacts-runner/pkg/cli"

func main() {
	cli.Execute()
}
