// Package main provides the imgkit command line tool.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"imgkit/internal/config"
	"imgkit/internal/correlate"
	"imgkit/internal/cvbridge"
	"imgkit/internal/version"
)

const appTitle = "imgkit"

type command struct {
	summary string
	run     func(conf *config.Config, args []string) error
}

var commands = map[string]command{
	"info":      {"print size, type and range of images", runInfo},
	"convert":   {"convert type or depth and save", runConvert},
	"histogram": {"print a grey or RGB histogram", runHistogram},
	"stats":     {"print intensity statistics", runStats},
	"correlate": {"find the offset between two images", runCorrelate},
	"stitch":    {"stitch a row or column of tiles", runStitch},
	"filter":    {"blur, sharpen, edge-detect or transpose an image", runFilter},
	"transform": {"apply an affine transform", runTransform},
	"register":  {"fit an affine matrix between two images", runRegister},
	"blend":     {"render a mosaic layout file", runBlend},
	"version":   {"print version information", runVersion},
}

// errUsage makes main print the command's usage and exit with status 2.
var errUsage = errors.New("usage")

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", config.Path(), "Configuration file")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	name := flag.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", name)
		usage()
		os.Exit(2)
	}

	conf, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if conf.Debug {
		log.Printf("Starting %s v%s (%s, engine %s)", appTitle, version.Version, name, conf.Engine)
	}

	if err := cmd.run(conf, flag.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "%s %s: %v\n", appTitle, name, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-config file] <command> [flags] [args]\n\nCommands:\n", appTitle)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, commands[name].summary)
	}
}

// newFlagSet returns a flag set for a subcommand that reports parse errors
// as errUsage.
func newFlagSet(name, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s %s [flags] %s\n", appTitle, name, args)
		fs.PrintDefaults()
	}
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string, minArgs int) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < minArgs {
		fs.Usage()
		return errUsage
	}
	return nil
}

// correlator returns the correlator selected by the engine key.
func correlator(conf *config.Config) *correlate.Correlator {
	if conf.Engine == config.EngineOpenCV {
		return correlate.New(cvbridge.Matcher{})
	}
	return correlate.Default
}
