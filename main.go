package main

import "facematch-backend/cmd"

func main() {
	cmd.Run()
}
