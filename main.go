package main

import (
	"github.com/Kuree/hgdb-sub000/cmd"
)

func main() {
	cmd.Execute()
}
