package main

import "github.com/atikulmunna/lograte/internal/cmd"

func main() {
	cmd.Execute()
}
