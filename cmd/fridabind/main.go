package main

import (
	"os"

	"github.com/dsjlzh/fridabind"
	"github.com/dsjlzh/fridabind/internal/cli"
	_ "github.com/dsjlzh/fridabind/native"
)

func main() {
	code := cli.Main()
	fridabind.Shutdown()
	os.Exit(code)
}
