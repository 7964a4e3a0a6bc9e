package main

import (
	"context"

	"github.com/use-agent/scrubber/cmd/scrubber/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
