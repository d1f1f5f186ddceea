package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var version = "dev" // Will be set during build

var (
	settingsFile string
	logLevel     string
	logFormat    string
	historyDB    string
	templateDir  string
	githubToken  string
)

var rootCmd = &cobra.Command{
	Use:   "netboxdeploy",
	Short: "Render NetBox deployment artifacts",
	Long: `netboxdeploy renders everything a NetBox host needs from one deployment config.

It validates the config and produces the application settings, connection
parameter files, gunicorn and systemd units, the database provisioning SQL and
the release install script. It never installs packages or starts services.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Custom usage template that encourages 'help' subcommand pattern
const usageTemplate = `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{if eq (len .Groups) 0}}

Available Commands:{{range $cmds}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{else}}{{range $group := .Groups}}

{{.Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if not .AllChildCommandsHaveGroup}}

Additional Commands:{{range $cmds}}{{if (and (eq .GroupID "") (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .CommandPath .CommandPathPadding}} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} help [command]" for more information about a command.{{end}}
`

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Set custom usage template to encourage 'help' subcommand pattern
	rootCmd.SetUsageTemplate(usageTemplate)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&settingsFile, "settings", "", "Path to a netboxdeploy settings file (yaml, json or toml)")
	pf.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	pf.StringVar(&logFormat, "log-format", "console", "Log format: console or json")
	pf.StringVar(&historyDB, "history-db", "./netboxdeploy.db", "Path to the render history database")
	pf.StringVar(&templateDir, "template-dir", "", "Directory with template overrides (<name>.tmpl)")
	pf.StringVar(&githubToken, "github-token", "", "GitHub token used to resolve version: latest")

	// Register subcommands
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(secretCmd)
	rootCmd.AddCommand(versionCmd)

	bindViper(rootCmd, renderCmd, validateCmd, diffCmd, planCmd, verifyCmd, serveCmd, historyCmd)
}

// bindViper layers settings: flags > NETBOXDEPLOY_* environment > settings
// file > flag defaults.
func bindViper(commands ...*cobra.Command) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("NETBOXDEPLOY")
	v.AutomaticEnv()

	cobra.OnInitialize(func() {
		explicit := settingsFile
		if explicit == "" {
			explicit = os.Getenv("NETBOXDEPLOY_SETTINGS")
		}
		configureSettingsFile(v, explicit)

		for _, cmd := range commands {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				cobra.CheckErr(err)
			}
			if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
				cobra.CheckErr(err)
			}
		}
		if err := readSettingsFile(v, explicit != ""); err != nil {
			cobra.CheckErr(err)
		}
		for _, cmd := range commands {
			for _, fs := range []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()} {
				applySettings(v, fs)
			}
		}
	})
}

func applySettings(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		val := fmt.Sprintf("%v", v.Get(f.Name))
		if val != "" {
			_ = f.Value.Set(val)
		}
	})
}

func configureSettingsFile(v *viper.Viper, explicitPath string) {
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		return
	}
	v.SetConfigName("settings")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/netboxdeploy")
}

func readSettingsFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		return fmt.Errorf("failed to read settings: %w", err)
	}
	return nil
}
