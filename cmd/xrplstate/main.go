package main

import "github.com/LeJamon/xrplstate/internal/cli"

func main() {
	cli.Execute()
}
