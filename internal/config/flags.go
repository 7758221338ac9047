package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile   = flag.String("log-file", "", "Also write logs to this file")
	flagNoUV0     = flag.Bool("no-uv0", false, "Do not export the first UV layer")
	flagNoUV1     = flag.Bool("no-uv1", false, "Do not export the second UV layer")
	flagNoColor   = flag.Bool("no-color", false, "Do not export vertex colors")
	flagRequireUV = flag.Bool("require-uv", false, "Cancel exports of meshes without a UV layer")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagNoUV0 {
		cfg.Export.UV0 = false
	}
	if *flagNoUV1 {
		cfg.Export.UV1 = false
	}
	if *flagNoColor {
		cfg.Export.Color = false
	}
	if *flagRequireUV {
		cfg.Export.RequireUV = true
	}
}
