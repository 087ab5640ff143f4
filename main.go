package main

import "github.com/brogergvhs/siteci/cmd"

func main() {
	cmd.Execute()
}
