package main

import "github.com/twiced-technology-gmbh/cadence/cmd"

func main() {
	cmd.Execute()
}
