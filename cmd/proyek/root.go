package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/proyek/internal/paths"
)

// app holds the global flags and the state PersistentPreRunE prepares for
// every subcommand.
type app struct {
	flagConfigDir string
	flagDataDir   string
	flagJSON      bool
	flagVerbose   bool

	cfg    *viper.Viper
	logger *zap.Logger
	out    io.Writer
	errOut io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "proyek",
		Short:         "Plan project stages and allocate their budget",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flagDataDir, "data-dir", "", "data directory (default: $(CWD)/.proyek-db)")
	pf.BoolVar(&a.flagJSON, "json", false, "output as JSON")
	pf.BoolVar(&a.flagVerbose, "verbose", false, "enable debug logging")

	root.AddCommand(
		newVersionCmd(a),
		newInitCmd(a),
		newProjectCmd(a),
		newStageCmd(a),
		newBudgetCmd(a),
		newPlanCmd(a),
		newReportCmd(a),
	)
	return root
}

// setup loads config.yaml and builds the logger.
func (a *app) setup() error {
	configDir, err := paths.ResolveConfigDir(a.flagConfigDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return sysError(err)
	}
	a.cfg = cfg

	logger, err := a.buildLogger(cfg.GetString(cfgKeyLogLevel))
	if err != nil {
		return sysError(fmt.Errorf("failed to initialize logger: %w", err))
	}
	a.logger = logger
	a.logger.Debug("config loaded",
		zap.String("config_dir", configDir),
		zap.String("config_file", cfg.ConfigFileUsed()))
	return nil
}

// buildLogger uses the production encoder and writes to errOut so command
// output stays clean.
func (a *app) buildLogger(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	if a.flagVerbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(config.EncoderConfig),
		zapcore.AddSync(a.errOut),
		config.Level,
	)
	return zap.New(core).Named("proyek"), nil
}
