package main

import "github.com/fulmenhq/affiance/cmd"

func main() {
	cmd.Execute()
}
