package main

import "github.com/Suhaibinator/SRelease/internal/cli"

func main() {
	cli.Execute()
}
