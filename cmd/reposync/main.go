package main

import (
	"reposync/cmd/reposync/cmd"
)

func main() {
	cmd.Execute()
}
