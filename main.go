package main

import "thoreinstein.com/designcheck/cmd"

func main() {
	cmd.Execute()
}
