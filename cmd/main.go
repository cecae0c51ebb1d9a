package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/MimeLyc/wordsub/internal/service"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
			var wsErr *service.WordsubError
			if errors.As(err, &wsErr) {
				fmt.Fprintln(os.Stderr, "hint:", service.Advice(err))
			}
		}
		os.Exit(1)
	}
}
