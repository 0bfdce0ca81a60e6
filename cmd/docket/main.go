package main

import "github.com/vietddude/docket/internal/cli"

func main() {
	cli.Execute()
}
