package main

import "github.com/meridiankv/meridian-go/cmd"

func main() {
	cmd.Execute()
}
