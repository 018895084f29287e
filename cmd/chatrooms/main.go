package main

import "github.com/nfrund/chatrooms/cmd/chatrooms/cmd"

func main() {
	cmd.Execute()
}
