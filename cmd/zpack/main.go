package main

import "github.com/andybalholm/zpack/cmd/zpack/cmd"

func main() {
	cmd.Execute()
}
