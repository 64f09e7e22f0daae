// dronesim runs the drone MANET discrete-event simulator.
package main

import "github.com/dantte-lp/dronesim/cmd/dronesim/commands"

func main() {
	commands.Execute()
}
