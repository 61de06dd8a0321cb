/*
Analysevhd loads a normalized tree produced by optimvhd into the design
model and runs the dependency analyzer over every architecture it finds,
writing one Graphviz .dot file per architecture.

Usage:

	analysevhd [flags] FILE...

For each FILE (expected to end in ".optim.xml"), analysevhd writes
"<base>.<architecture>.dot" for every architecture in FILE, where <base> is
FILE with ".optim.xml" removed. When FILE contains exactly one architecture,
analysevhd additionally writes the plain "<base>.dot", so the common
single-architecture case needs no architecture name to find its output. Per-file errors are
printed to stderr and that file is skipped; processing continues with the
remaining arguments. An UnknownEntity (an architecture naming an entity
absent from FILE) or a MissingChild is printed to stderr and skips only that
architecture; the file fails only when none of its architectures load.

The flags are:

	-v, --version
		Print the current version and exit.

	--indent N
		Tree read indent width in spaces (default 2); must match the indent
		optimvhd used to write FILE.

	--config PATH
		Load a vhdlfront.toml configuration file. Falls back to
		$VHDLFRONT_CONFIG when not given.

	--cache PATH
		Enable the content-addressed build cache at PATH, keyed on FILE's
		bytes, memoizing the tree read from FILE. Falls back to
		$VHDLFRONT_CACHE, then to the config file's cache_path, when not
		given.
*/
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dekarrin/vhdlfront/internal/config"
	"github.com/dekarrin/vhdlfront/internal/diag"
	"github.com/dekarrin/vhdlfront/internal/vhdl/cache"
	"github.com/dekarrin/vhdlfront/internal/vhdl/depgraph"
	"github.com/dekarrin/vhdlfront/internal/vhdl/design"
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
	flagIndent  = pflag.Int("indent", 0, "Tree read indent width in spaces (default 2)")
	flagConfig  = pflag.String("config", "", "Load a vhdlfront.toml configuration file")
	flagCache   = pflag.String("cache", "", "Enable the content-addressed build cache at PATH")
)

func main() {
	os.Exit(run())
}

func run() int {
	pflag.Parse()

	if *flagVersion {
		fmt.Printf("analysevhd %s\n", version.Current)
		return ExitSuccess
	}

	args := pflag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: analysevhd [flags] FILE...")
		return ExitUsage
	}

	cfgPath := *flagConfig
	if cfgPath == "" {
		cfgPath = os.Getenv("VHDLFRONT_CONFIG")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysevhd: could not load config: %s\n", err)
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
			fmt.Fprintf(os.Stderr, "analysevhd: could not open cache: %s\n", err)
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

	var tree *syntax.Tree
	var hash string
	if bc != nil {
		hash = cache.HashSource(src)
		var cached syntax.Tree
		if ok, _ := bc.Get(hash, &cached); ok {
			tree = &cached
		}
	}
	if tree == nil {
		in, err := os.Open(file)
		if err != nil {
			return diag.Diagnostic{Kind: diag.KindIO, File: file, Message: "cannot read file: " + err.Error()}
		}
		defer in.Close()
		tree, err = treeio.Read(in, indent)
		if err != nil {
			return diag.Diagnostic{Kind: diag.KindIO, File: file, Message: "malformed tree: " + err.Error()}
		}
		if bc != nil {
			_ = bc.Put(hash, fileModTime(file), tree)
		}
	}

	bag := diag.NewBag()
	base := strings.TrimSuffix(file, ".optim.xml")
	loaded := design.Load(base, tree, bag)
	if bag.HasErrors() {
		for _, line := range bag.Lines() {
			fmt.Fprintln(os.Stderr, line)
		}
		if len(loaded.Architectures) == 0 {
			return fmt.Errorf("%s: no architectures could be loaded", file)
		}
	}

	for _, arch := range loaded.Architectures {
		ent, ok := loaded.Entities[arch.EntityName]
		if !ok {
			continue
		}
		archBag := diag.NewBag()
		graph := depgraph.Analyze(ent, arch, archBag)
		if graph == nil {
			for _, line := range archBag.Lines() {
				fmt.Fprintln(os.Stderr, line)
			}
			continue
		}
		dot := graph.WriteDot()

		outPath := fmt.Sprintf("%s.%s.dot", base, arch.Name)
		if err := os.WriteFile(outPath, []byte(dot), 0o644); err != nil {
			return diag.Diagnostic{Kind: diag.KindIO, File: file, Message: "cannot write output: " + err.Error()}
		}
		if len(loaded.Architectures) == 1 {
			if err := os.WriteFile(base+".dot", []byte(dot), 0o644); err != nil {
				return diag.Diagnostic{Kind: diag.KindIO, File: file, Message: "cannot write output: " + err.Error()}
			}
		}
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
