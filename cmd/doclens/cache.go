package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"time"

	"doclens/internal/model"
)

// runCache handles "cache stats" and "cache purge".
func runCache(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: doclens cache <stats|purge> [-config file]")
	}
	sub, args := args[0], args[1:]
	if sub != "stats" && sub != "purge" {
		return fmt.Errorf("unknown cache command %q", sub)
	}

	fs := flag.NewFlagSet("cache "+sub, flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	olderThan := time.Duration(0)
	if sub == "purge" {
		fs.DurationVar(&olderThan, "older-than", 30*24*time.Hour, "purge entries older than this age")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := setup(common)
	if err != nil {
		return err
	}
	defer rt.close()
	if rt.cache == nil {
		return errors.New("result cache is disabled (set cache.enabled or DOCLENS_CACHE_DB)")
	}

	ctx := context.Background()
	switch sub {
	case "stats":
		stats, err := rt.cache.Stats(ctx)
		if err != nil {
			return err
		}
		printStats(out, stats)
		return nil
	case "purge":
		n, err := rt.cache.Purge(ctx, time.Now().Add(-olderThan))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "purged %d cached results older than %s\n", n, olderThan)
	}
	return nil
}

func printStats(out io.Writer, stats map[model.ResultType]int) {
	types := make([]string, 0, len(stats))
	total := 0
	for t, n := range stats {
		types = append(types, string(t))
		total += n
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(out, "%-14s %d\n", t, stats[model.ResultType(t)])
	}
	fmt.Fprintf(out, "%-14s %d\n", "total", total)
}
