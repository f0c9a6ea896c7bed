// Package main writes a development CA and a server certificate signed by it
// into the "certs" directory. The server loads server.crt and server.key; the
// client trusts ca.crt.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/GophTally/internal/certgen"
)

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("certgen", flag.ContinueOnError)
	fs.SetOutput(out)
	dir := fs.String("dir", "certs", "output directory")
	hosts := fs.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var names []string
	for _, h := range strings.Split(*hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			names = append(names, h)
		}
	}

	created, err := certgen.WriteBundle(*dir, names)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(out, "new CA written to %s\n", filepath.Join(*dir, certgen.CACertFile))
	}
	fmt.Fprintf(out, "server certificate for %s written to %s\n",
		strings.Join(names, ", "), filepath.Join(*dir, certgen.ServerCertFile))
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
