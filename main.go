package main

import "github.com/cppla/yatube/commands"

func main() {
	commands.Execute()
}
