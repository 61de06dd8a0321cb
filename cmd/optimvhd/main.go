/*
Optimvhd reads a tree file produced by vhd2xml and runs the normalizer over
it (generic-parameter inlining, then multi-identifier declaration
expansion), writing the result back out.

Usage:

	optimvhd [flags] FILE...

For each FILE (expected to end in ".xml"), optimvhd writes a sibling file
with ".xml" replaced by ".optim.xml". Per-file errors are printed to stderr
and that file is skipped; processing continues with the remaining
arguments.

The flags are:

	-v, --version
		Print the current version and exit.

	--indent N
		Tree dump indent width in spaces (default 2); must match the indent
		vhd2xml used to write FILE.

	--config PATH
		Load a vhdlfront.toml configuration file. Falls back to
		$VHDLFRONT_CONFIG when not given.

	--cache PATH
		Enable the content-addressed build cache at PATH, keyed on FILE's
		bytes. Falls back to $VHDLFRONT_CACHE when not given.
*/
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dekarrin/vhdlfront/internal/config"
	"github.com/dekarrin/vhdlfront/internal/diag"
	"github.com/dekarrin/vhdlfront/internal/vhdl/cache"
	"github.com/dekarrin/vhdlfront/internal/vhdl/normalize"
	"github.com/dekarrin/vhdlfront/internal/vhdl/syntax"
	"github.com/dekarrin/vhdlfront/internal/vhdl/treeio"
	"github.com/dekarrin/vhdlfront/internal/version"
	"github.com/spf13/pflag"
)

const (
	ExitSuccess = iota
	ExitUsage
	ExitFileErrors
)

var (
	flagVersion = pflag.BoolP("version", "v", false, "Print the current version and exit")
	flagIndent  = pflag.Int("indent", 0, "Tree dump indent width in spaces (default 2)")
	flagConfig  = pflag.String("config", "", "Load a vhdlfront.toml configuration file")
	flagCache   = pflag.String("cache", "", "Enable the content-addressed build cache at PATH")
)

func main() {
	os.Exit(run())
}

func run() int {
	pflag.Parse()

	if *flagVersion {
		fmt.Printf("optimvhd %s\n", version.Current)
		return ExitSuccess
	}

	args := pflag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: optimvhd [flags] FILE...")
		return ExitUsage
	}

	cfgPath := *flagConfig
	if cfgPath == "" {
		cfgPath = os.Getenv("VHDLFRONT_CONFIG")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "optimvhd: could not load config: %s\n", err)
		return ExitUsage
	}
	indent := cfg.IndentOr(treeio.DefaultIndent)
	if *flagIndent > 0 {
		indent = *flagIndent
	}

	cachePath := *flagCache
	if cachePath == "" {
		cachePath = os.Getenv("VHDLFRONT_CACHE")
	}
	if cachePath == "" {
		cachePath = cfg.CachePath
	}

	var bc *cache.Cache
	if cachePath != "" {
		bc, err = cache.Open(cachePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "optimvhd: could not open cache: %s\n", err)
			return ExitUsage
		}
		defer bc.Close()
	}

	failures := 0
	for _, file := range args {
		if err := processFile(file, indent, bc); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			failures++
		}
	}
	if failures > 0 {
		return ExitFileErrors
	}
	return ExitSuccess
}

func processFile(file string, indent int, bc *cache.Cache) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return diag.Diagnostic{Kind: diag.KindIO, File: file, Message: "cannot read file: " + err.Error()}
	}

	var hash string
	if bc != nil {
		hash = cache.HashSource(src)
		var cached syntax.Tree
		if ok, _ := bc.Get(hash, &cached); ok {
			return writeTree(file, &cached, indent)
		}
	}

	in, err := os.Open(file)
	if err != nil {
		return diag.Diagnostic{Kind: diag.KindIO, File: file, Message: "cannot read file: " + err.Error()}
	}
	defer in.Close()

	tree, err := treeio.Read(in, indent)
	if err != nil {
		return diag.Diagnostic{Kind: diag.KindIO, File: file, Message: "malformed tree: " + err.Error()}
	}

	normalized := normalize.Normalize(tree)

	if bc != nil {
		_ = bc.Put(hash, fileModTime(file), normalized)
	}

	return writeTree(file, normalized, indent)
}

func writeTree(sourceFile string, tree *syntax.Tree, indent int) error {
	outPath := strings.TrimSuffix(sourceFile, ".xml") + ".optim.xml"
	out, err := os.Create(outPath)
	if err != nil {
		return diag.Diagnostic{Kind: diag.KindIO, File: sourceFile, Message: "cannot write output: " + err.Error()}
	}
	defer out.Close()
	if err := treeio.Write(out, tree, indent); err != nil {
		return diag.Diagnostic{Kind: diag.KindIO, File: sourceFile, Message: "cannot write output: " + err.Error()}
	}
	return nil
}

func fileModTime(file string) int64 {
	info, err := os.Stat(file)
	if err != nil {
		return 0
	}
	return info.ModTime().Unix()
}
