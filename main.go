package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/net/proxy"

	"github.com/cdnbench/cdnbench/cdnbench"
)

var (
	BuildName       = "dev"
	BuildAnnotation = "git"
)

type cmdOpts struct {
	providers   []string
	sizes       []int
	proxyURL    string
	catalogPath string
	timeout     time.Duration
	jsonOut     bool
	pingOnly    bool
	listOnly    bool
	noProgress  bool
}

func newRootCmd() *cobra.Command {
	opts := &cmdOpts{}

	cmd := &cobra.Command{
		Use:          "cdnbench",
		Short:        "Measure download speed and latency against well-known public hosts",
		Version:      fmt.Sprintf("%s (%s)", BuildName, BuildAnnotation),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&opts.providers, "providers", "p", nil, "provider keys to test (default: all known)")
	flags.IntSliceVarP(&opts.sizes, "sizes", "s", nil, "only test files of these nominal sizes (MB)")
	flags.StringVar(&opts.proxyURL, "proxy", "", "SOCKS proxy URL (socks5://[user:pass@]host:port)")
	flags.StringVar(&opts.catalogPath, "catalog", "", "YAML file replacing the built-in server catalog")
	flags.DurationVar(&opts.timeout, "timeout", cdnbench.DefaultFetchTimeout, "per-transfer timeout")
	flags.BoolVar(&opts.jsonOut, "json", false, "emit the report as JSON on stdout")
	flags.BoolVar(&opts.pingOnly, "ping", false, "latency-only mode over the ping endpoint list")
	flags.BoolVar(&opts.listOnly, "list", false, "print the server catalog and exit")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "disable the transfer progress meter")

	return cmd
}

func run(opts *cmdOpts) error {
	transport, err := buildTransport(opts.proxyURL)
	if err != nil {
		return err
	}

	catalog := cdnbench.DefaultCatalog()
	pingEndpoints := cdnbench.DefaultPingEndpoints()
	if opts.catalogPath != "" {
		loaded, loadedPings, err := cdnbench.LoadCatalogFile(opts.catalogPath)
		if err != nil {
			return err
		}
		catalog = loaded
		if len(loadedPings) > 0 {
			pingEndpoints = loadedPings
		}
	}

	printer := log.New(os.Stdout, "", 0)

	if opts.listOnly {
		cdnbench.PrintCatalog(printer, catalog)
		return nil
	}

	if opts.pingOnly {
		if opts.jsonOut {
			return printJSON(cdnbench.PingAll(pingEndpoints, transport))
		}
		cdnbench.PingAndPrint(printer, pingEndpoints, transport)
		return nil
	}

	runOpts := cdnbench.RunOptions{
		Transport: transport,
		Timeout:   opts.timeout,
	}

	if opts.jsonOut {
		report, err := cdnbench.Run(catalog, opts.providers, opts.sizes, runOpts)
		if err != nil {
			return err
		}
		return printJSON(report)
	}

	if !opts.noProgress && isatty.IsTerminal(os.Stderr.Fd()) {
		runOpts.Progress = os.Stderr
	}

	printer.Printf("At: %s\n\n", time.Now().Format(time.RFC1123Z))

	return cdnbench.RunAndPrint(printer, catalog, opts.providers, opts.sizes, runOpts)
}

// buildTransport returns nil for an empty proxyURL, meaning direct connections.
func buildTransport(proxyURL string) (http.RoundTripper, error) {
	if proxyURL == "" {
		return nil, nil
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing proxy URL")
	}
	if parsed.Scheme != "socks5" && parsed.Scheme != "socks5h" {
		return nil, errors.Errorf("unsupported proxy scheme %q (want socks5://host:port)", parsed.Scheme)
	}

	var auth *proxy.Auth
	if parsed.User != nil {
		password, _ := parsed.User.Password()
		auth = &proxy.Auth{User: parsed.User.Username(), Password: password}
	}

	dialer, err := proxy.SOCKS5("tcp", parsed.Host, auth, proxy.Direct)
	if err != nil {
		return nil, errors.Wrap(err, "constructing SOCKS dialer")
	}

	transport := &http.Transport{
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = contextDialer.DialContext
	} else {
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}

	return transport, nil
}

func printJSON(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding JSON")
	}
	fmt.Println(string(encoded))
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
