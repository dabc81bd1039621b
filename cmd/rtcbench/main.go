package main

import "github.com/thesyncim/rtcbench/cmd/rtcbench/cmd"

func main() {
	cmd.Execute()
}
