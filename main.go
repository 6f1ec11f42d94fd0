package main

import "github.com/AzielCF/az-eight/cmd"

func main() {
	cmd.Execute()
}
