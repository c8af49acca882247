package main

import "nfcunha/hermes-router/cmd"

func main() {
	cmd.Execute()
}
