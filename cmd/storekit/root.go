package main

import (
	"github.com/spf13/cobra"

	"github.com/sensiblebit/storekit"
	"github.com/sensiblebit/storekit/internal"
)

var (
	logLevel     string
	configPath   string
	passwordList string
	passwordFile string
	noPrompt     bool
)

var rootCmd = &cobra.Command{
	Use:   "storekit",
	Short: "Typed crypto-object loader",
	Long:  "Load private keys, public keys, certificates, CRLs, parameter sets, and bundles from PEM or binary files, without declaring the format up front.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetupLogger(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./storekit.yaml", "Path to YAML config")
	rootCmd.PersistentFlags().StringVarP(&passwordList, "passwords", "p", "", "Comma-separated passwords for encrypted content")
	rootCmd.PersistentFlags().StringVar(&passwordFile, "password-file", "", "File containing passwords, one per line")
	rootCmd.PersistentFlags().BoolVar(&noPrompt, "no-prompt", false, "Never prompt for passphrases interactively")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(scanCmd)
}

// passphraseSource builds the passphrase chain used by every command: the
// configured password candidates first, then the terminal prompt unless
// prompting is disabled.
func passphraseSource() (storekit.PassphraseFunc, error) {
	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	passwords, err := internal.CollectPasswords(passwordList, passwordFile, cfg.Passwords)
	if err != nil {
		return nil, err
	}

	list := internal.ListPassphrase(passwords)
	if noPrompt || (!cfg.Prompt && len(passwords) > 0) {
		return list, nil
	}
	prompt := storekit.TerminalPassphrase()
	return func(promptInfo string) ([]byte, error) {
		if secret, err := list(promptInfo); err == nil {
			return secret, nil
		}
		return prompt(promptInfo)
	}, nil
}
