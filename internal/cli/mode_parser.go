package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeReport  = "report-service"
	ModeMonitor = "event-monitor"
)

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "config/config.yaml"

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeReport, "report", "r":
		return ModeReport, true
	case ModeMonitor, "monitor", "m":
		return ModeMonitor, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `report-service --max-concurrent=150`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := range args {
		arg := args[i]
		// explicit flag wins over a subcommand
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		// the first known mode name acts as a subcommand
		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		// everything else is left for the mode's FlagSet
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=<service>")
	}

	// normalize aliases to the canonical mode name
	m, ok := isKnownMode(mode)
	if !ok {
		return "", out, fmt.Errorf("unknown mode %q", mode)
	}

	return m, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // cyan

	fmt.Fprintln(w, `Usage:
  ./civic-aid --mode=<service> [flags]

Services (modes):
  report-service      Accident report page, emergency calls and SOS
  event-monitor       Logs the incident event feed from RabbitMQ

Examples:
  ./civic-aid --mode=report-service --max-concurrent=150
  ./civic-aid --mode=report-service --config=/etc/civic-aid/config.yaml
  ./civic-aid --mode=event-monitor --prefetch=8`)

	fmt.Fprint(w, "\033[0m") // reset
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./civic-aid --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
