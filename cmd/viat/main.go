package main

import "github.com/reza-shahriari/VIAT/internal/cli"

func main() {
	cli.Execute()
}
