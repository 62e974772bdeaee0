package main

import (
	"github.com/mchmarny/hireable/pkg/cli"
)

func main() {
	cli.Execute()
}
