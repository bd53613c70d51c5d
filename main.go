package main

import (
	"context"

	"github.com/stackpr/stackpr/cmd"
)

func main() {
	ctx := context.Background()
	cmd.Execute(ctx)
}
