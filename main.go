package main

import "github.com/kozaktomas/facecall/cmd"

func main() {
	cmd.Execute()
}
