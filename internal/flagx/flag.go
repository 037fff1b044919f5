// Package flagx holds the argument handling shared by the server and client
// config loaders. Each loader parses os.Args in more than one pass, so every
// pass first drops the flags it does not own.
package flagx

import (
	"flag"
	"io"
	"os"
	"strings"
)

// ConfigEnvVar names the environment variable consulted when no -c/-config
// flag is given. Containers mount the config file and set this instead of
// rewriting the command line.
const ConfigEnvVar = "VOLUNTEERHUB_CONFIG"

// FilterArgs keeps the arguments that name one of allowed, together with
// their values. Both "-name value" and "-name=value" are recognised, and a
// name matches with one or two leading dashes. A following argument that
// starts with a dash is never taken as a value.
func FilterArgs(args []string, allowed []string) []string {
	names := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		names[bareName(a)] = struct{}{}
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name, _, inline := strings.Cut(arg, "=")
		if _, ok := names[bareName(name)]; !ok {
			continue
		}
		out = append(out, arg)

		if !inline && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

func bareName(s string) string {
	return strings.TrimLeft(s, "-")
}

// ConfigPath returns the JSON config path given by -c or -config in args,
// falling back to ConfigEnvVar. An empty string means no JSON file.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	if path == "" {
		path = os.Getenv(ConfigEnvVar)
	}
	return path
}
