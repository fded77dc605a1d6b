// Command tls-client is a thin driver around pkg/handshake and pkg/session:
// it dials a real TLS server over TCP, runs the client handshake, and
// exercises the resulting record stream.
package main

import (
	"flag"
	"fmt"
	"os"

	pkgversion "github.com/fenwick-labs/gotls/pkg/version"
)

var (
	version   = ""
	buildTime = "unknown"
	gitCommit = "unknown"
)

func getVersion() string {
	if version != "" {
		return version
	}
	return pkgversion.String()
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "connect":
		connectCommand()
	case "bench":
		benchCommand()
	case "version":
		fmt.Printf("tls-client version %s\n", getVersion())
		if buildTime != "unknown" {
			fmt.Printf("Built: %s\n", buildTime)
		}
		if gitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", gitCommit)
		}
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tls-client - client-side TLS 1.2/1.3 handshake driver

USAGE:
    tls-client <command> [options]

COMMANDS:
    connect   Dial a server, complete the handshake, and exchange data
    bench     Benchmark repeated handshakes against a server
    version   Print version information
    help      Show this help message

Run 'tls-client <command> --help' for more information on a command.

EXAMPLES:
    # Connect and print negotiated parameters
    tls-client connect --addr example.com:443 --server-name example.com

    # Send an HTTP GET and print the response
    tls-client connect --addr example.com:443 --server-name example.com --http-path /

    # Benchmark 100 handshakes
    tls-client bench --addr example.com:443 --server-name example.com --handshakes 100`)
}
