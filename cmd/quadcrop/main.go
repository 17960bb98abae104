package main

import "github.com/MeKo-Tech/quadcrop/cmd/quadcrop/cmd"

func main() {
	cmd.Execute()
}
