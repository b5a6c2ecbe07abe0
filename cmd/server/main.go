package main

import "github.com/AlessiaSanfi/EventHub-Project/cmd/server/cmd"

func main() {
	cmd.Execute()
}
