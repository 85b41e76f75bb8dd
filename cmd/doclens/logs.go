package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"doclens/internal/config"
	"doclens/internal/errlog"
)

// runLogs prints the tail of the error log configured by log.error_dir.
func runLogs(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("logs", flag.ContinueOnError)
	var common commonFlags
	common.register(flags)
	n := flags.Int("n", 50, "number of lines to print")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cm := config.NewConfigManager(common.configPath)
	if err := cm.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dir := cm.Get().Log.ErrorDir
	if dir == "" {
		return errors.New("error log is disabled (set log.error_dir)")
	}

	lines, err := errlog.RecentLines(dir, *n)
	if err != nil {
		return err
	}
	for _, l := range lines {
		fmt.Fprintln(out, l)
	}

	archives, err := errlog.ListArchives(dir)
	if err != nil {
		return err
	}
	if len(archives) > 0 {
		fmt.Fprintf(out, "\n%d archived logs in %s:\n", len(archives), dir)
		for _, a := range archives {
			fmt.Fprintln(out, "  "+a)
		}
	}
	return nil
}
