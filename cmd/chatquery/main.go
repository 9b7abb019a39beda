package main

import "github.com/jonwraymond/chatquery/internal/cli"

func main() {
	cli.Execute()
}
