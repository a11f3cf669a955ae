package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/webriots/flatten/driver"
	"github.com/webriots/flatten/internal/log"
	"github.com/webriots/flatten/nested"
	"github.com/webriots/flatten/traverse"
)

const (
	configF    = "config"
	inputF     = "input"
	modeF      = "mode"
	limitF     = "limit"
	verbosityF = "verbosity"

	defaultInput     = "[1, [[2, 3], [4, 5]], [6, 7, 8]]"
	defaultMode      = "generator"
	defaultLimit     = 0
	defaultVerbosity = log.WARN

	configFlagUsage = "The YAML configuration file."
	inputUsage      = "The tree literal to flatten when no argument is given."
	limitUsage      = "Stop after this many leaves (0 flattens everything)."
	verbosityUsage  = "Verbosity of the logs on stderr. Options: debug, info, warn, error."
)

var modeUsage = "Realization used to flatten the tree. Options: " + kindList() + "."

// Config is assembled by viper from flags, the config file and
// FLATTEN_* environment variables.
type Config struct {
	Input     string `mapstructure:"input"`
	Mode      string `mapstructure:"mode"`
	Limit     int    `mapstructure:"limit"`
	Verbosity string `mapstructure:"verbosity"`
}

// NewCmd builds the root command with its compare subcommand.
func NewCmd() *cobra.Command {
	var cfgFile string
	verbosity := defaultVerbosity

	flattenCmd := &cobra.Command{
		Use:   "flatten [literal | -]",
		Short: "Lazily flatten a nested list, one leaf per line.",
		Long: `Flatten prints the leaves of a nested list literal such as
[1, [[2, 3], [4, 5]], [6, 7, 8]] in depth-first order, one per line.
Pass "-" to read the literal from stdin.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flattenCmd.PersistentFlags().StringVar(&cfgFile, configF, "", configFlagUsage)
	flattenCmd.PersistentFlags().String(inputF, defaultInput, inputUsage)
	flattenCmd.PersistentFlags().Var(&verbosity, verbosityF, verbosityUsage)
	flattenCmd.Flags().String(modeF, defaultMode, modeUsage)
	flattenCmd.Flags().Int(limitF, defaultLimit, limitUsage)

	flattenCmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, cfgFile)
		if err != nil {
			return err
		}

		kind, err := traverse.ParseKind(cfg.Mode)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		root, err := readTree(cmd, args, cfg)
		if err != nil {
			return err
		}

		it, err := traverse.New(kind, root, traverse.OnLeaf(func(depth int) {
			logger.Debugw("Visiting leaf", "depth", depth)
		}))
		if err != nil {
			return err
		}

		logger.Infow("Flattening", "mode", kind, "depth", root.Depth(), "leaves", root.Size())
		d := driver.New(cmd.OutOrStdout(), logger)
		d.Limit = cfg.Limit
		_, err = driver.Run(d, it)
		return err
	}

	flattenCmd.AddCommand(CompareCmd(&cfgFile))
	return flattenCmd
}

func loadConfig(cmd *cobra.Command, cfgFile string) (*Config, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix("FLATTEN")
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *Config) (*zap.SugaredLogger, error) {
	var level log.Level
	if err := level.Set(cfg.Verbosity); err != nil {
		return nil, err
	}
	return log.New(level)
}

// readTree parses the literal from the argument, stdin when the
// argument is "-", or the configured input.
func readTree(cmd *cobra.Command, args []string, cfg *Config) (nested.Value[string], error) {
	src := []byte(cfg.Input)
	if len(args) == 1 {
		src = []byte(args[0])
		if args[0] == "-" {
			var err error
			if src, err = io.ReadAll(cmd.InOrStdin()); err != nil {
				return nested.Value[string]{}, err
			}
		}
	}

	root, err := nested.Parse(src)
	if err != nil {
		return nested.Value[string]{}, fmt.Errorf("parse input: %w", err)
	}
	return root, nil
}

func kindList() string {
	names := make([]string, 0, len(traverse.Kinds()))
	for _, k := range traverse.Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}

var errMismatch = errors.New("realizations disagree")
