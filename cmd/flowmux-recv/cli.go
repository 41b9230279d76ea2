package main

import "flag"

// Options holds CLI options for the receiver.
type Options struct {
    ConfigPath string
    Listen     string
    Kind       string
    OutDir     string
    Channels   int
}

// ParseFlags parses CLI flags from args and returns Options.
func ParseFlags(args []string) Options {
    fs := flag.NewFlagSet("flowmux-recv", flag.ExitOnError)
    var opts Options
    fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
    fs.StringVar(&opts.Listen, "listen", "", "Address to listen on (overrides config)")
    fs.StringVar(&opts.Kind, "kind", "", "Transport kind: tcp|quic|mem|winpipe (overrides config)")
    fs.StringVar(&opts.OutDir, "out", ".", "Directory for received channel files")
    fs.IntVar(&opts.Channels, "channels", 1, "Number of channels to accept (ids 1..N)")
    _ = fs.Parse(args)
    return opts
}
