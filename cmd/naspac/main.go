package main

import "naspac-portal/cmd/naspac/cmd"

func main() {
	cmd.Execute()
}
