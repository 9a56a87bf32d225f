// ABOUTME: Root cobra command and configuration loading
// ABOUTME: Subcommands bind their flags onto a fresh viper per invocation
package cli

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-capture/internal/config"
	"github.com/Resonate-Protocol/resonate-capture/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cfgFile holds the config file path from CLI flag
var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "resonate-capture",
	Short:   "Game and microphone audio capture",
	Version: version.Version,
	Long: `resonate-capture mixes game audio and microphone input into fixed-size
stereo blocks and encodes them in step with a frame-paced video timeline.

Game audio comes from a loopback or input device, an audio file played by a
simulated engine, or a test tone.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./resonate-capture.yaml or $HOME/.config/resonate-capture/resonate-capture.yaml)")
}

// flagBinding maps a config key to a command-line flag
type flagBinding struct {
	key  string
	flag string
}

// loadConfig loads configuration with cmd's flags bound under their config keys.
// Flags only override file and environment values when explicitly set.
func loadConfig(cmd *cobra.Command, bindings []flagBinding) (*config.Config, error) {
	v := viper.New()
	for _, b := range bindings {
		f := cmd.Flags().Lookup(b.flag)
		if f == nil {
			return nil, fmt.Errorf("unknown flag %q for %s", b.flag, b.key)
		}
		if err := v.BindPFlag(b.key, f); err != nil {
			return nil, fmt.Errorf("failed to bind flag %q to key %q: %w", b.flag, b.key, err)
		}
	}
	return config.LoadWith(v, cfgFile)
}
