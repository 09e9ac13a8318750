package main

import "github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/cli"

func main() {
	cli.Execute()
}
