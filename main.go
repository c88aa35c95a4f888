package main

import "github.com/deploymenttheory/go-floudsfs/cmd"

func main() {
	cmd.Execute()
}
