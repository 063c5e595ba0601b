package commands

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Ramjan-Shaikh/trustaudit/internal/input"
)

var authUsername string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtain and store an access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		username, password, err := promptCredentials(out)
		if err != nil {
			return err
		}
		token, err := client.Login(cmd.Context(), username, password)
		if err != nil {
			return err
		}
		if err := cred.Save(token.AccessToken); err != nil {
			return fmt.Errorf("token obtained but not persisted: %w", err)
		}
		fmt.Fprintln(out, dimStyle.Render("logged in as "+username))
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		username, password, err := promptCredentials(out)
		if err != nil {
			return err
		}
		user, err := client.Signup(cmd.Context(), username, password)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("account %s created (id %d); run `trustaudit login` next", user.Username, user.ID)))
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the authenticated account",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := client.Me(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d, since %s)\n", user.Username, user.ID, user.CreatedAt.Format("2006-01-02"))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cred.Invalidate()
		fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("logged out"))
		return nil
	},
}

func promptCredentials(out io.Writer) (string, string, error) {
	username := authUsername
	if username == "" {
		fmt.Fprint(out, "username: ")
		line, err := input.NewStdinReader(os.Stdin).ReadLine()
		if err != nil {
			return "", "", err
		}
		username = line
	}

	fmt.Fprint(out, "password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(out)
	if err != nil {
		return "", "", err
	}
	return username, string(password), nil
}

func init() {
	loginCmd.Flags().StringVarP(&authUsername, "username", "u", "", "Account username (prompts when omitted)")
	signupCmd.Flags().StringVarP(&authUsername, "username", "u", "", "Account username (prompts when omitted)")
	rootCmd.AddCommand(loginCmd, signupCmd, whoamiCmd, logoutCmd)
}
