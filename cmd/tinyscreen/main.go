package main

import "github.com/bryanchriswhite/TinyScreen/cmd/tinyscreen/commands"

func main() {
	commands.Execute()
}
