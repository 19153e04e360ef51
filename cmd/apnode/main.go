package main

import (
	"go.apnode.dev/apnode/pkg/cmd/apnode"
)

func main() {
	apnode.Execute()
}
