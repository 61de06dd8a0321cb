/*
Vhdgraphserver serves previously generated dependency graphs over HTTP and
lets an authorized caller regenerate one from a freshly posted normalized
tree.

Usage:

	vhdgraphserver [flags]

Once started, vhdgraphserver listens for HTTP requests:

	GET  /graphs/{arch}             - serve the architecture's current .dot file
	POST /graphs/{arch}/regenerate  - recompute it from a posted .optim.xml body

The regenerate endpoint requires a valid bearer token when a secret is
configured; GET never requires one.

The flags are:

	-v, --version
		Print the current version and exit.

	-l, --listen ADDRESS
		Listen on the given address, BIND_ADDRESS:PORT or :PORT. Defaults to
		$VHDLFRONT_LISTEN_ADDRESS, and if that is unset, localhost:8080.

	-d, --dir PATH
		Directory .dot files are served from and regenerated into. Defaults
		to the current directory.

	-s, --secret SECRET
		Bearer-token secret for the regenerate endpoint. Defaults to
		$VHDLFRONT_TOKEN_SECRET. If neither is given, the regenerate
		endpoint is left unauthenticated -- fine for local use, never for a
		publicly reachable server.
*/
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/dekarrin/vhdlfront/internal/vhdl/graphserver"
	"github.com/dekarrin/vhdlfront/internal/version"
	"github.com/spf13/pflag"
)

const (
	EnvListen = "VHDLFRONT_LISTEN_ADDRESS"
	EnvSecret = "VHDLFRONT_TOKEN_SECRET"

	DefaultListen = "localhost:8080"
)

var (
	flagVersion = pflag.BoolP("version", "v", false, "Print the current version and exit")
	flagListen  = pflag.StringP("listen", "l", "", "Listen on the given address")
	flagDir     = pflag.StringP("dir", "d", ".", "Directory .dot files are served from and regenerated into")
	flagSecret  = pflag.StringP("secret", "s", "", "Bearer-token secret for the regenerate endpoint")
)

func main() {
	pflag.Parse()

	if *flagVersion {
		fmt.Printf("vhdgraphserver %s\n", version.Current)
		return
	}

	listen := os.Getenv(EnvListen)
	if pflag.Lookup("listen").Changed {
		listen = *flagListen
	}
	if listen == "" {
		listen = DefaultListen
	}

	secretStr := os.Getenv(EnvSecret)
	if pflag.Lookup("secret").Changed {
		secretStr = *flagSecret
	}
	if secretStr == "" {
		log.Printf("WARN  no token secret configured; /regenerate is unauthenticated")
	}

	srv := &graphserver.Server{Dir: *flagDir, Secret: []byte(secretStr)}

	log.Printf("INFO  vhdgraphserver %s listening on %s, serving %s", version.Current, listen, *flagDir)
	if err := http.ListenAndServe(listen, srv.Router()); err != nil {
		log.Fatalf("FATAL server exited: %s", err)
	}
}
