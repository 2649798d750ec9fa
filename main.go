package main

import "github.com/linetrace/linetrace/cmd"

func main() {
	cmd.Execute()
}
