package main

import "github.com/xtruelegend/keymint/cmd"

func main() {
	cmd.Execute()
}
