package main

import "github.com/depscope/depscope/cmd"

func main() {
	cmd.Execute()
}
