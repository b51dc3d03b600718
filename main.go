package main

import "reiatsu/cmd"

func main() {
	cmd.Execute()
}
