package main

import "github.com/MeKo-Tech/visionscan/cmd/visionscan/cmd"

func main() {
	cmd.Execute()
}
