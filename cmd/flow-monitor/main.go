package main

import "github.com/oshokin/flow-monitor/cmd/flow-monitor/cmd"

func main() {
	cmd.Execute()
}
