package commands

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Ramjan-Shaikh/trustaudit/internal/api"
	"github.com/Ramjan-Shaikh/trustaudit/internal/auth"
	"github.com/Ramjan-Shaikh/trustaudit/internal/config"
	"github.com/Ramjan-Shaikh/trustaudit/internal/logger"
)

var (
	version string
	commit  string
	date    string

	// initialized by rootCmd's PersistentPreRunE, shared by all subcommands
	cfg    *config.Config
	cred   *auth.Credential
	client *api.Client

	flagBaseURL string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trustaudit",
	Short: "TrustAudit - audited chat client",
	Long: `TrustAudit is a terminal client for an audited chat service. Every
answer the server produces is checked by an auditor, and this client
shows the verdict next to the answer, lets you re-run audits, and
renders the provenance graph that links tasks, results, and audits.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.SetLevel(cfg.Log.Level)
		if flagBaseURL != "" {
			cfg.Server.BaseURL = flagBaseURL
		}
		cred = auth.NewCredential(cfg.Auth.TokenFile)
		client = api.New(cfg.Server.BaseURL, cred, &http.Client{Timeout: cfg.Server.Timeout})
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), errorStyle.Render("error: "+err.Error()))
	}
	return err
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "server", "", "Server base URL (overrides config)")
}
