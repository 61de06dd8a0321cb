/*
Vhd2xml lexes and parses VHDL-93 source and writes the resulting syntax tree
in the project's indented tree format.

Usage:

	vhd2xml [flags] FILE...

For each FILE, vhd2xml writes FILE.xml containing the pretty-printed parse
tree. Per-file lex/parse errors are printed to stderr as
"FILE:LINE:message" and that file is skipped; processing continues with the
remaining arguments. vhd2xml exits non-zero if no FILE is given, or if any
file failed.

The flags are:

	-v, --version
		Print the current version and exit.

	--indent N
		Tree dump indent width in spaces (default 2).

	--config PATH
		Load indent/cache-path/reserved-word overrides from a vhdlfront.toml
		file. Falls back to $VHDLFRONT_CONFIG when not given.

	--cache PATH
		Enable the content-addressed build cache at PATH: a cache hit skips
		re-lexing/parsing a source file whose bytes were already seen. Falls
		back to $VHDLFRONT_CACHE when not given.
*/
package main

import (
	"fmt"
	"os"

	"github.com/dekarrin/vhdlfront/internal/config"
	"github.com/dekarrin/vhdlfront/internal/diag"
	"github.com/dekarrin/vhdlfront/internal/vhdl/cache"
	"github.com/dekarrin/vhdlfront/internal/vhdl/lex"
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
		fmt.Printf("vhd2xml %s\n", version.Current)
		return ExitSuccess
	}

	args := pflag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: vhd2xml [flags] FILE...")
		return ExitUsage
	}

	cfgPath := *flagConfig
	if cfgPath == "" {
		cfgPath = os.Getenv("VHDLFRONT_CONFIG")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vhd2xml: could not load config: %s\n", err)
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
			fmt.Fprintf(os.Stderr, "vhd2xml: could not open cache: %s\n", err)
			return ExitUsage
		}
		defer bc.Close()
	}

	failures := 0
	for _, file := range args {
		if err := processFile(file, indent, bc, cfg.ReservedWords); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			failures++
		}
	}
	if failures > 0 {
		return ExitFileErrors
	}
	return ExitSuccess
}

func processFile(file string, indent int, bc *cache.Cache, reserved map[string]string) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return diag.Diagnostic{Kind: diag.KindIO, File: file, Message: "cannot read file: " + err.Error()}
	}

	hash := ""
	if bc != nil {
		hash = cache.HashSource(src)
		var cached syntax.Tree
		if ok, _ := bc.Get(hash, &cached); ok {
			return writeTree(file, &cached, indent)
		}
	}

	bag := diag.NewBag()
	toks := lex.NewWithReserved(file, string(src), bag, reserved).Lex()
	tree := syntax.New(file, toks, bag).ParseDesignFile()
	if bag.HasErrors() {
		for _, line := range bag.Lines() {
			fmt.Fprintln(os.Stderr, line)
		}
		return fmt.Errorf("%s: parsing failed", file)
	}

	if bc != nil {
		_ = bc.Put(hash, fileModTime(file), tree)
	}

	return writeTree(file, tree, indent)
}

func writeTree(sourceFile string, tree *syntax.Tree, indent int) error {
	out, err := os.Create(sourceFile + ".xml")
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
