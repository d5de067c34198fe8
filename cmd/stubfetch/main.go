// SPDX-License-Identifier: GPL-3.0-or-later

// Command stubfetch fetches a URL over HTTP/1.1, resolving the host with
// the stub resolver, and optionally serves the status line it got.
//
// Usage:
//
//	stubfetch [OPTIONS] URL
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/bassosimone/stubfetch"
	"github.com/charmbracelet/lipgloss"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// options contains the command line flags.
type options struct {
	Resolver       string   `short:"r" long:"resolver" description:"Upstream DNS server (IPv4:port)" default:"8.8.8.8:53"`
	SystemResolver bool     `long:"system-resolver" description:"Use the system resolver instead of the stub resolver"`
	CrossCheck     bool     `long:"cross-check" description:"Also resolve the host with the library DNS engine and compare"`
	Timeout        int      `short:"t" long:"timeout" description:"Overall timeout in seconds (0 means no timeout)" default:"30"`
	Method         string   `short:"X" long:"method" description:"Request method" choice:"GET" choice:"POST" choice:"PUT" choice:"DELETE" default:"GET"`
	Headers        []string `short:"H" long:"header" description:"Extra request header as 'Key: Value' (repeatable)"`
	Data           string   `short:"d" long:"data" description:"Request body"`
	Serve          string   `long:"serve" description:"After fetching, serve the status line on this address (e.g., 127.0.0.1:7800)"`
	MetricsAddr    string   `long:"metrics-addr" description:"Expose Prometheus metrics on this address"`
	Verbose        bool     `short:"v" long:"verbose" description:"Emit structured logs on stderr"`
	ShowBody       bool     `long:"body" description:"Print the response body"`

	Args struct {
		URL string `positional-arg-name:"URL" required:"yes"`
	} `positional-args:"yes"`
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	headerStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).Padding(0, 1)
)

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+describe(err))
		os.Exit(1)
	}
}

// parseFlags parses and validates the command line.
func parseFlags(args []string) (*options, error) {
	opts := &options{}
	parser := flags.NewParser(opts, flags.Default)
	parser.Usage = "[OPTIONS] URL"
	if _, err := parser.ParseArgs(args); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		return nil, err
	}
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0, got %d", opts.Timeout)
	}
	for _, header := range opts.Headers {
		if !strings.Contains(header, ":") {
			return nil, fmt.Errorf("invalid header %q: expected 'Key: Value'", header)
		}
	}
	return opts, nil
}

func run(opts *options, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// configure
	cfg := stubfetch.NewConfig()
	endpoint, err := netip.ParseAddrPort(opts.Resolver)
	if err != nil {
		return fmt.Errorf("invalid --resolver: %w", err)
	}
	cfg.ResolverEndpoint = endpoint

	if opts.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		cfg.Metrics = stubfetch.NewPrometheusMetrics(registry)
		go serveMetrics(opts.MetricsAddr, registry)
	}

	var logger stubfetch.SLogger = stubfetch.DefaultSLogger()
	if opts.Verbose {
		handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		logger = slog.New(handler).With("spanID", stubfetch.NewSpanID())
	}

	fetchCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, time.Duration(opts.Timeout)*time.Second)
		defer cancel()
	}

	// optionally compare resolvers
	u, err := stubfetch.ParseURL(opts.Args.URL)
	if err != nil {
		return err
	}
	if opts.CrossCheck {
		host := u.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		cc, _ := stubfetch.NewCrossCheckFunc(cfg, logger).Call(fetchCtx, host)
		printCrossCheck(stdout, cc)
	}

	// fetch
	var resolver stubfetch.Func[string, netip.Addr] = stubfetch.NewResolveFunc(cfg, logger)
	if opts.SystemResolver {
		resolver = stubfetch.FuncAdapter[string, netip.Addr](systemResolve)
	}
	fetch := &stubfetch.FetchFunc{
		Connect: stubfetch.NewClientSessionFunc(cfg, logger, resolver),
		Request: func() *stubfetch.HTTPRequest { return newRequest(opts) },
	}
	resp, err := fetch.Call(fetchCtx, opts.Args.URL)
	if err != nil {
		return err
	}
	printResponse(stdout, u, resp, opts.ShowBody)

	// optionally serve the status line
	if opts.Serve == "" {
		return nil
	}
	listener, err := net.Listen("tcp", opts.Serve)
	if err != nil {
		return err
	}
	server := stubfetch.NewStatusServer(cfg, logger, listener, resp.StatusLine)
	fmt.Fprintln(stdout, keyStyle.Render("serving status line on ")+server.Addr().String())
	if err := server.Serve(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newRequest builds the request described by the flags.
func newRequest(opts *options) *stubfetch.HTTPRequest {
	req := stubfetch.NewHTTPRequest()
	req.Method = stubfetch.Method(opts.Method)
	for _, header := range opts.Headers {
		key, value, _ := strings.Cut(header, ":")
		req.Headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if opts.Data != "" {
		req.Body = []byte(opts.Data)
	}
	return req
}

// systemResolve resolves using the system resolver, for hosts where it is available.
func systemResolve(ctx context.Context, host string) (netip.Addr, error) {
	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return netip.Addr{}, &stubfetch.DNSResolveError{Hostname: host, Err: err}
	}
	return addrs[0].Unmap(), nil
}

func serveMetrics(address string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(address, mux); err != nil {
		fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
	}
}

func printCrossCheck(w io.Writer, cc *stubfetch.CrossCheck) {
	fmt.Fprintln(w, titleStyle.Render("cross-check "+cc.Hostname))
	if cc.StubErr != nil {
		fmt.Fprintln(w, keyStyle.Render("  stub:    ")+errorStyle.Render(cc.StubErr.Error()))
	} else {
		fmt.Fprintln(w, keyStyle.Render("  stub:    ")+cc.StubAddr.String())
	}
	if cc.LibraryErr != nil {
		fmt.Fprintln(w, keyStyle.Render("  library: ")+errorStyle.Render(cc.LibraryErr.Error()))
	} else {
		fmt.Fprintln(w, keyStyle.Render("  library: ")+fmt.Sprint(cc.LibraryAddrs))
	}
	if cc.Agree() {
		fmt.Fprintln(w, "  "+okStyle.Render("agree"))
	} else {
		fmt.Fprintln(w, "  "+errorStyle.Render("disagree"))
	}
}

func printResponse(w io.Writer, u stubfetch.URL, resp *stubfetch.HTTPResponse, showBody bool) {
	var lines []string
	lines = append(lines, titleStyle.Render(resp.StatusLine))
	keys := make([]string, 0, len(resp.Headers))
	for key := range resp.Headers {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		lines = append(lines, keyStyle.Render(key+":")+" "+resp.Headers[key])
	}
	fmt.Fprintln(w, keyStyle.Render(u.Scheme+"://"+u.Host+u.Path))
	fmt.Fprintln(w, headerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	if showBody {
		fmt.Fprintln(w, resp.Body)
	}
}

// describe tells apart the three user-visible failure families.
func describe(err error) string {
	var (
		dnsErr    *stubfetch.DNSResolveError
		streamErr *stubfetch.StreamConnectionError
	)
	switch {
	case errors.As(err, &dnsErr):
		return "could not resolve name: " + err.Error()
	case errors.As(err, &streamErr):
		return "could not connect: " + err.Error()
	case errors.Is(err, stubfetch.ErrResponseParse):
		return "peer sent garbage: " + err.Error()
	default:
		return err.Error()
	}
}
