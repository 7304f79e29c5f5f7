package main

import "github.com/russellromney/confidant/cmd"

func main() {
	cmd.Execute()
}
