package main

import "github.com/oshokin/catpoint/cmd/security-server/cmd"

func main() {
	cmd.Execute()
}
