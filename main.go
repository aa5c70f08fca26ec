package main

import "github.com/pders01/prompt-library/cmd"

func main() {
	cmd.Execute()
}
