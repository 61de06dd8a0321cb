/*
Vhdshell is an interactive REPL for inspecting how a line of VHDL-93 lexes
and parses.

Usage:

	vhdshell [flags]

Each line typed in is lexed immediately and the resulting token stream is
printed. If the line also parses as a complete design file on its own (most
single-line fragments won't), the resulting tree is printed instead. Type
"QUIT" or send EOF (Ctrl-D) to exit.

The flags are:

	-v, --version
		Print the current version and exit.

	-d, --direct
		Force reading directly from stdin instead of GNU readline editing,
		even when attached to a terminal.
*/
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dekarrin/vhdlfront/internal/diag"
	"github.com/dekarrin/vhdlfront/internal/replio"
	"github.com/dekarrin/vhdlfront/internal/vhdl/lex"
	"github.com/dekarrin/vhdlfront/internal/vhdl/syntax"
	"github.com/dekarrin/vhdlfront/internal/vhdl/token"
	"github.com/dekarrin/vhdlfront/internal/version"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
)

var (
	flagVersion = pflag.BoolP("version", "v", false, "Print the current version and exit")
	flagDirect  = pflag.BoolP("direct", "d", false, "Force reading directly from stdin")
)

func main() {
	pflag.Parse()

	if *flagVersion {
		fmt.Printf("vhdshell %s\n", version.Current)
		return
	}

	isStdTTY := isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
	reader, err := replio.New(os.Stdin, os.Stdout, *flagDirect, isStdTTY, "vhd> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "vhdshell: %s\n", err)
		os.Exit(1)
	}
	defer reader.Close()

	fmt.Printf("vhdshell %s -- type QUIT or Ctrl-D to exit\n", version.Current)

	for {
		line, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				fmt.Println()
				return
			}
			fmt.Fprintf(os.Stderr, "vhdshell: %s\n", err)
			return
		}
		if strings.EqualFold(strings.TrimSpace(line), "quit") {
			return
		}
		evalLine(line)
	}
}

func evalLine(line string) {
	bag := diag.NewBag()
	toks := lex.New("<shell>", line, bag).Lex()

	if bag.HasErrors() {
		for _, d := range bag.Lines() {
			fmt.Println(d)
		}
		return
	}

	parseBag := diag.NewBag()
	tree := syntax.New("<shell>", toks, parseBag).ParseDesignFile()
	if !parseBag.HasErrors() && len(tree.Children) > 0 {
		fmt.Println(tree.String())
		return
	}

	for _, t := range toks {
		if t.Class.Equal(token.EOF) {
			continue
		}
		fmt.Printf("%-14s %q\n", t.Class.Human(), t.Lexeme)
	}
}
