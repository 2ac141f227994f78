package cli

import (
	"fmt"

	"github.com/smokyabdulrahman/athan/internal/config"
	"github.com/smokyabdulrahman/athan/internal/display"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// FlagJSON switches every command to machine-readable output.
var FlagJSON bool

// override is a flag that shadows a config key. Its value goes through
// config.Set, so flags and `config set` share validation. A nil def means
// the flag is declared by a subcommand rather than on the root.
type override struct {
	flag, key string
	def       any
	usage     string
}

var overrides = []override{
	{"city", "city", "", "City label shown in the header"},
	{"country", "country", "", "Country; a two-letter code also picks the regional method"},
	{"latitude", "latitude", 0.0, "Override latitude"},
	{"longitude", "longitude", 0.0, "Override longitude"},
	{"altitude", "altitude", 0.0, "Observer altitude in metres"},
	{"timezone", "timezone", "", "IANA timezone for displayed times (default: detected or local)"},
	{"method", "method", -1, "Calculation method (0-6, see 'methods')"},
	{"school", "school", -1, "Asr school (0=Shafi, 1=Hanafi)"},
	{"rounding", "rounding", "", "Rounding: none, nearest, up, down or special"},
	{"offset", "offset_minutes", 0, "Shift every time by this many minutes"},
	{"time-format", "time_format", "", "Time format: 12h or 24h (overrides config)"},
	{"cache-dir", "cache_dir", "", "Cache directory (default: ~/.cache/prayer-times/)"},
	{"prayers", "prayers", nil, ""},
}

func defineOverrides(fs *pflag.FlagSet) {
	for _, o := range overrides {
		switch def := o.def.(type) {
		case string:
			fs.String(o.flag, def, o.usage)
		case float64:
			fs.Float64(o.flag, def, o.usage)
		case int:
			fs.Int(o.flag, def, o.usage)
		}
	}
}

// loadedConfig is the config file as read in PersistentPreRunE.
var loadedConfig *config.Config

// NewRootCmd builds the prayer-times command tree. version comes from ldflags.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:     "prayer-times",
		Short:   "Islamic prayer times CLI",
		Long:    "A full-featured CLI for Islamic prayer times, calculated locally from the sun's position.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if FlagJSON {
				display.SetEnabled(false)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			loadedConfig = cfg
			return nil
		},
		RunE:          runToday,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("prayer-times version {{.Version}}\n")

	pf := root.PersistentFlags()
	defineOverrides(pf)
	pf.BoolVar(&FlagJSON, "json", false, "Output as JSON (where supported)")

	root.AddCommand(
		newNextCmd(),
		newListCmd(),
		newWeekCmd(),
		newMonthCmd(),
		newQueryCmd(),
		newConfigCmd(),
		newMethodsCmd(),
		newQiblaCmd(),
		newCompareCmd(),
		newDaemonCmd(),
	)
	return root
}

// effectiveConfig layers explicitly set flags over a copy of the loaded
// config, then fills the display defaults.
func effectiveConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg config.Config
	if loadedConfig != nil {
		cfg = *loadedConfig
	}

	for _, o := range overrides {
		f := changedFlag(cmd, o.flag)
		if f == nil {
			continue
		}
		if err := cfg.Set(o.key, f.Value.String()); err != nil {
			return nil, fmt.Errorf("--%s: %w", o.flag, err)
		}
	}

	defaults := config.Defaults()
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = defaults.TimeFormat
	}
	if cfg.Rounding == "" {
		cfg.Rounding = defaults.Rounding
	}
	return &cfg, nil
}

// changedFlag finds name among cmd's own flags or the root's persistent
// ones, returning it only when the user set it.
func changedFlag(cmd *cobra.Command, name string) *pflag.Flag {
	for _, fs := range []*pflag.FlagSet{cmd.Flags(), cmd.Root().PersistentFlags()} {
		if f := fs.Lookup(name); f != nil && f.Changed {
			return f
		}
	}
	return nil
}
