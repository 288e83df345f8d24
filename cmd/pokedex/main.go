package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hitoshi/pokedex/internal/app"
)

func main() {
	if err := app.Run(context.Background(), os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
