package main

import "flag"

// Options holds CLI options for the sender.
type Options struct {
    ConfigPath string
    Dial       string
    Kind       string
    Encode     string
    Files      []string
    Rate       int64
}

// ParseFlags parses CLI flags from args and returns Options. Positional
// arguments are the files to send, one channel each in order.
func ParseFlags(args []string) Options {
    fs := flag.NewFlagSet("flowmux-send", flag.ExitOnError)
    var opts Options
    fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
    fs.StringVar(&opts.Dial, "dial", "", "Address to dial (overrides config)")
    fs.StringVar(&opts.Kind, "kind", "", "Transport kind: tcp|quic|mem|winpipe (overrides config)")
    fs.StringVar(&opts.Encode, "encode", "", "Encode chunks as tagged values: json|cbor (default raw bytes)")
    fs.Int64Var(&opts.Rate, "rate", 0, "Per-channel shaping in bytes/sec (overrides config)")
    _ = fs.Parse(args)
    opts.Files = fs.Args()
    return opts
}
