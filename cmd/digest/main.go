package main

import "github.com/yanqian/digestbot/cmd/digest/cmd"

func main() {
	cmd.Execute()
}
