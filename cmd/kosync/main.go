package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/kosync/internal/cli"
)

func main() {
	ctx := context.Background()
	os.Exit(cli.Execute(ctx))
}
