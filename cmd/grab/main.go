package main

import "github.com/bryanchriswhite/grab/cmd/grab/commands"

func main() {
	commands.Execute()
}
