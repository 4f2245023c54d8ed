package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/victornm/quizpin/internal/cli"
)

func main() {
	log.SetFlags(0)
	cobra.CheckErr(cli.New().Execute())
}
