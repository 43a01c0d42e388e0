// Package main provides bcachetool, which inspects, dumps and restores
// block devices through the block cache.
package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hupe1980/bcache/internal/cli"
)

func main() {
	environ := os.Environ()
	env := make(map[string]string, len(environ))

	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	os.Exit(cli.Run(os.Stdout, os.Stderr, os.Args, env, sigCh))
}
