package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stacklok/jobtracker/internal/app"
	"github.com/stacklok/jobtracker/internal/credentials"
	"github.com/stacklok/jobtracker/internal/remote"
)

// readSecret returns value when set, otherwise prompts for it. Input is not
// echoed when stdin is a terminal.
func readSecret(cmd *cobra.Command, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), prompt+": ")
	defer func() { _, _ = fmt.Fprintln(cmd.ErrOrStderr()) }()

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(prompt), err)
		}
		return string(secret), nil
	}
	return readLine(cmd.InOrStdin())
}

// readLine reads up to the next newline without buffering past it, so that
// consecutive prompts can share one reader.
func readLine(r io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			sb.WriteByte(buf[0])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
	}
	return strings.TrimRight(sb.String(), "\r"), nil
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := readSecret(cmd, password, "Password")
			if err != nil {
				return err
			}
			return opts.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				result, err := c.Remote.Login(ctx, remote.Credentials{Email: email, Password: secret})
				if err != nil {
					return err
				}
				if err := c.Credentials.Save(result.Token); err != nil {
					return fmt.Errorf("failed to store access token: %w", err)
				}

				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "Logged in as %s\n", valueOr(result.User.FullName, result.User.Email))
				if expiry, ok := credentials.Expiry(result.Token); ok {
					_, _ = fmt.Fprintf(out, "Token expires %s\n", expiry.Local().Format(time.RFC1123))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	if err := cmd.MarkFlagRequired("email"); err != nil {
		panic(err)
	}
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd, func(_ context.Context, c *app.Client) error {
				if err := c.Credentials.Clear(); err != nil {
					return fmt.Errorf("failed to clear access token: %w", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var user remote.NewUser
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if user.Password, err = readSecret(cmd, user.Password, "Password"); err != nil {
				return err
			}
			return opts.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				if err := c.Remote.Register(ctx, user); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Account %s created, run 'jobtracker login' to sign in\n", user.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&user.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&user.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&user.FullName, "full-name", "", "Full name")
	cmd.Flags().StringVar(&user.Password, "password", "", "Account password (prompted when omitted)")
	for _, name := range []string{"email", "first-name"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	return cmd
}

func newChangePasswordCmd(opts *rootOptions) *cobra.Command {
	var change remote.PasswordChange
	cmd := &cobra.Command{
		Use:   "change-password",
		Short: "Change the password of the logged in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if change.OldPassword, err = readSecret(cmd, change.OldPassword, "Current password"); err != nil {
				return err
			}
			if change.NewPassword, err = readSecret(cmd, change.NewPassword, "New password"); err != nil {
				return err
			}
			return opts.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				if err := c.Remote.ChangePassword(ctx, change); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Password changed")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&change.Email, "email", "", "Account email (defaults to the logged in account)")
	cmd.Flags().StringVar(&change.OldPassword, "old-password", "", "Current password (prompted when omitted)")
	cmd.Flags().StringVar(&change.NewPassword, "new-password", "", "New password (prompted when omitted)")
	return cmd
}
