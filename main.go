package main

import "macaronic/cmd"

func main() {
	cmd.Execute()
}
