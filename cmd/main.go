package main

import "dropship-api/cmd/commands"

func main() {
	commands.Execute()
}
