package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/smokyabdulrahman/athan/internal/cache"
	"github.com/smokyabdulrahman/athan/internal/config"
	"github.com/smokyabdulrahman/athan/internal/display"
	"github.com/smokyabdulrahman/athan/internal/method"
	"github.com/spf13/cobra"
)

var configExamples = []string{
	"latitude 21.4225",
	"longitude 39.8262",
	"timezone Asia/Riyadh",
	"method 3",
	"method mwl",
	"rounding nearest",
	"pre_alert_minutes 10",
	"prayers Fajr,Dhuhr,Asr,Maghrib,Isha",
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or modify configuration",
		Long:  "Display current configuration, or use subcommands to modify it.\nWhen run without subcommands, shows the current configuration.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "  Configuration (%s)\n", path)
			if c, err := cache.New(cfg.CacheDir); err == nil {
				fmt.Fprintf(out, "  Cache (%s)\n", c.Dir())
			}
			fmt.Fprintln(out)
			printConfig(out, cfg)
			return nil
		},
	}

	var examples strings.Builder
	for _, ex := range configExamples {
		examples.WriteString("\n  prayer-times config set " + ex)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a config value",
			Long:  fmt.Sprintf("Set a configuration value. Valid keys: %s\n\nmethod takes an ID or name from `prayer-times methods`. These IDs are not Al Adhan's;\nolder config files that stored an Al Adhan number are converted on load.\n\nExamples:%s", strings.Join(config.ValidKeys, ", "), examples.String()),
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return updateConfig(cmd.OutOrStdout(), args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print a single config value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				val, err := cfg.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), val)
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Reset config to defaults",
			Long:  "Delete the config file and restore all settings to defaults.",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.Reset(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Configuration reset to defaults.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print config file path",
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := config.Path()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
	)

	return cmd
}

// updateConfig validates and persists one key.
func updateConfig(w io.Writer, key, value string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	stored, _ := cfg.Get(key)
	fmt.Fprintf(w, "Set %s = %s\n", key, annotate(key, stored))
	return nil
}

func printConfig(w io.Writer, cfg *config.Config) {
	for _, key := range config.ValidKeys {
		val, _ := cfg.Get(key)
		if val == "" {
			val = "(not set)"
		} else {
			val = annotate(key, val)
		}
		fmt.Fprintf(w, "  %-18s %s\n", key, val)
	}
}

// annotate appends the human name to numeric method and school values.
func annotate(key, val string) string {
	switch key {
	case "method":
		return formatMethodValue(val)
	case "school":
		if name, ok := map[string]string{"0": "Shafi", "1": "Hanafi"}[val]; ok {
			return val + " (" + name + ")"
		}
	}
	return val
}

func formatMethodValue(val string) string {
	id, err := strconv.Atoi(val)
	if err != nil {
		return val
	}
	if m, err := method.Lookup(id); err == nil {
		return fmt.Sprintf("%s (%s)", val, m.Name)
	}
	return val
}

func newMethodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List all calculation methods",
		Long:  "Print the table of built-in calculation methods with their twilight angles and regions.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if FlagJSON {
				return writeJSON(os.Stdout, method.Builtin.All())
			}
			fmt.Println("Supported calculation methods:")
			fmt.Println()
			fmt.Print(renderMethods(method.Builtin))
			fmt.Println()
			fmt.Println("Use --method <ID> to select a calculation method.")
			fmt.Println("If omitted, the method is picked from your country, falling back to the default (*).")
			return nil
		},
	}
}

// renderMethods renders the method catalog as a table.
func renderMethods(t *method.Table) string {
	def := t.Default()
	tbl := display.NewTable([]string{"ID", "Name", "Fajr", "Isha", "Asr", "Regions"})
	tbl.AlignRight(0)
	for _, m := range t.All() {
		name := m.Name
		if m.ID == def.ID {
			name += " *"
		}
		tbl.AddRow([]string{
			strconv.Itoa(m.ID),
			name,
			formatAngle(m.FajrAngle),
			formatIsha(m),
			m.School(),
			strings.Join(m.Countries, " "),
		})
	}
	return tbl.Render()
}

func formatAngle(deg float64) string {
	return strconv.FormatFloat(deg, 'f', -1, 64) + "°"
}

func formatIsha(m method.Method) string {
	if m.UsesInterval() {
		return fmt.Sprintf("%g min", m.IshaaInterval)
	}
	return formatAngle(m.IshaaAngle)
}
