package main

import "github.com/andresmejia3/posekit/cmd"

func main() {
	cmd.Execute()
}
