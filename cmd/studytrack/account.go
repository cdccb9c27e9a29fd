package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/studytrack/internal/auth"
	"github.com/verte-zerg/studytrack/internal/config"
)

var (
	accountEmail string
	deleteYes    bool
)

// stdinReader is shared so successive prompts on piped input read
// consecutive lines.
var stdinReader = bufio.NewReader(os.Stdin)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage local accounts and sessions",
	}

	createCmd := &cobra.Command{
		Use:   "create USERNAME",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountCreateCmd,
	}
	createCmd.Flags().StringVar(&accountEmail, "email", "", "email used for password resets")

	resetCmd := &cobra.Command{
		Use:   "reset USERNAME",
		Short: "Reset a forgotten password to a temporary one",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountResetCmd,
	}
	resetCmd.Flags().StringVar(&accountEmail, "email", "", "email registered on the account")
	_ = resetCmd.MarkFlagRequired("email")

	emailCmd := &cobra.Command{
		Use:   "email ADDRESS",
		Short: "Change the email of the logged-in account",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountEmailCmd,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the logged-in account",
		Args:  cobra.NoArgs,
		RunE:  runAccountDeleteCmd,
	}
	deleteCmd.Flags().BoolVar(&deleteYes, "yes", false, "confirm deletion")

	cmd.AddCommand(createCmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "login USERNAME",
		Short: "Log in and store a session token",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountLoginCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE:  runAccountLogoutCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE:  runAccountWhoamiCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "passwd",
		Short: "Change the password of the logged-in account",
		Args:  cobra.NoArgs,
		RunE:  runAccountPasswdCmd,
	})
	cmd.AddCommand(resetCmd)
	cmd.AddCommand(emailCmd)
	cmd.AddCommand(deleteCmd)
	return cmd
}

func runAccountCreateCmd(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	mgr, err := env.authManager()
	if err != nil {
		return err
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}
	if err := mgr.Create(args[0], password, accountEmail); err != nil {
		return err
	}
	return writeLines(cmd, fmt.Sprintf("Created account %s.", args[0]))
}

func runAccountLoginCmd(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	mgr, err := env.authManager()
	if err != nil {
		return err
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	token, err := mgr.Authenticate(args[0], password)
	if err != nil {
		if errors.Is(err, auth.ErrLocked) {
			return fmt.Errorf("account %s is locked, try again later", args[0])
		}
		return err
	}
	if err := writeSession(token); err != nil {
		return err
	}
	return writeLines(cmd, fmt.Sprintf("Logged in as %s.", args[0]))
}

func runAccountLogoutCmd(cmd *cobra.Command, _ []string) error {
	if err := os.Remove(config.DefaultSessionPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return writeLines(cmd, "Logged out.")
}

func runAccountWhoamiCmd(cmd *cobra.Command, _ []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	mgr, username, err := currentUser(env)
	if err != nil {
		return err
	}
	info, err := mgr.Info(username)
	if err != nil {
		return err
	}

	lines := []string{
		fmt.Sprintf("Username: %s", info.Username),
		fmt.Sprintf("Email: %s", info.Email),
		fmt.Sprintf("Created: %s", info.CreatedAt.Local().Format(time.RFC3339)),
	}
	if info.LastLogin != nil {
		lines = append(lines, fmt.Sprintf("Last login: %s", info.LastLogin.Local().Format(time.RFC3339)))
	}
	return writeLines(cmd, lines...)
}

func runAccountPasswdCmd(cmd *cobra.Command, _ []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	mgr, username, err := currentUser(env)
	if err != nil {
		return err
	}

	current, err := readPassword("Current password: ")
	if err != nil {
		return err
	}
	next, err := readPassword("New password: ")
	if err != nil {
		return err
	}
	if err := mgr.ChangePassword(username, current, next); err != nil {
		return err
	}
	return writeLines(cmd, "Password changed.")
}

func runAccountResetCmd(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	mgr, err := env.authManager()
	if err != nil {
		return err
	}

	temp, err := mgr.ResetPassword(args[0], accountEmail)
	if err != nil {
		return err
	}
	return writeLines(cmd, fmt.Sprintf("Temporary password: %s", temp), "Change it with: studytrack account passwd")
}

func runAccountEmailCmd(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	mgr, username, err := currentUser(env)
	if err != nil {
		return err
	}
	if err := mgr.UpdateEmail(username, args[0]); err != nil {
		return err
	}
	return writeLines(cmd, fmt.Sprintf("Email for %s set to %s.", username, args[0]))
}

func runAccountDeleteCmd(cmd *cobra.Command, _ []string) error {
	if !deleteYes {
		return fmt.Errorf("refusing to delete the account without --yes")
	}
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	mgr, username, err := currentUser(env)
	if err != nil {
		return err
	}
	if err := mgr.Delete(username); err != nil {
		return err
	}
	if err := os.Remove(config.DefaultSessionPath()); err != nil && !os.IsNotExist(err) {
		logErrf("failed to remove session: %v\n", err)
	}
	return writeLines(cmd, fmt.Sprintf("Deleted account %s.", username))
}

// currentUser resolves the stored session token to a username.
func currentUser(env *env) (*auth.Manager, string, error) {
	mgr, err := env.authManager()
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(config.DefaultSessionPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("not logged in (run: studytrack account login USERNAME)")
		}
		return nil, "", fmt.Errorf("failed to read session: %w", err)
	}
	username, err := mgr.ValidateToken(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, "", fmt.Errorf("session expired, log in again: %w", err)
	}
	return mgr, username, nil
}

func writeSession(token string) error {
	path := config.DefaultSessionPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// readPassword prompts without echo on a terminal and reads a plain line
// otherwise.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		logErrf("%s", prompt)
		raw, err := term.ReadPassword(fd)
		logErrln()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := stdinReader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
