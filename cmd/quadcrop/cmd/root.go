package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/quadcrop/internal/config"
	"github.com/MeKo-Tech/quadcrop/internal/version"
)

// app carries the state shared by every command of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

// Execute builds the command tree and runs it. This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCommand returns a fresh command tree with its own configuration
// state, so tests can run commands side by side.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "quadcrop",
		Short: "Perspective crop tool for photographed documents",
		Long: `quadcrop rectifies a four-corner region of an image into an upright
rectangle using a perspective transform.

This tool provides:
- One-shot crops from the command line with explicit or default corners
- An HTTP server with a one-shot crop endpoint
- An interactive WebSocket protocol with corner dragging and a magnifier
- JPEG, PNG and PDF output

Examples:
  quadcrop crop receipt.jpg --corners 120,80,940,60,980,1300,90,1320
  quadcrop crop page.png --format pdf --output page.pdf
  quadcrop serve --port 8080`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "quadcrop version "+version.String())
				return nil
			}
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $XDG_CONFIG_HOME/quadcrop, /etc/quadcrop)")
	flags.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("version", false, "print version information and exit")

	a.bind("verbose", flags.Lookup("verbose"))
	a.bind("log_level", flags.Lookup("log-level"))

	rootCmd.AddCommand(newCropCommand(a), newServeCommand(a), newConfigCommand(a))
	return rootCmd
}

// init loads configuration and installs the JSON logger. Logs go to stderr so
// crops written to stdout stay clean.
func (a *app) init(logOut io.Writer) error {
	loader := config.NewLoaderWithViper(a.v)
	cfg, err := loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	a.cfg = cfg

	a.logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(a.logger)
	if used := loader.GetConfigFileUsed(); used != "" {
		a.logger.Debug("configuration loaded", "file", used)
	}
	return nil
}

func (a *app) bind(key string, flag *pflag.Flag) {
	if flag == nil {
		panic("binding unknown flag for " + key)
	}
	_ = a.v.BindPFlag(key, flag)
}
