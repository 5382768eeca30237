package main

import (
	"os"

	"github.com/zjrosen/suanpan/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
