package main

import "github.com/openbookings/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
