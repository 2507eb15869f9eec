package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-profile-portal/internal/models"
	"github.com/pribylovaa/go-profile-portal/internal/pkg/redact"
	"github.com/pribylovaa/go-profile-portal/internal/session"
	"github.com/pribylovaa/go-profile-portal/internal/token"
)

func loginCmd(g *globals) *cobra.Command {
	var identifier, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with username or email",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			user, err := e.client.Login(cmd.Context(), identifier, passwordOrEnv(password))
			if err != nil {
				return err
			}

			printUser(cmd, "signed in as", user)
			return nil
		},
	}

	cmd.Flags().StringVarP(&identifier, "identifier", "i", "", "username or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (or PORTAL_PASSWORD)")
	_ = cmd.MarkFlagRequired("identifier")

	return cmd
}

func registerCmd(g *globals) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			user, err := e.client.Register(cmd.Context(), username, email, passwordOrEnv(password))
			if err != nil {
				return err
			}

			printUser(cmd, "registered", user)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (or PORTAL_PASSWORD)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func meCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			user, err := e.client.Me(cmd.Context())
			if err != nil {
				return err
			}

			printUser(cmd, "user", user)
			return nil
		},
	}
}

func refreshCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.client.Refresh(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "session refreshed")
			return nil
		},
	}
}

func logoutCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.client.Logout(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func statusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a non-expired session is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			st, authenticated, err := e.client.Status(cmd.Context())
			if err != nil {
				return err
			}

			printState(cmd, st, authenticated)
			return nil
		},
	}
}

func openCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Request a portal page the way a browser would",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			page, err := e.client.Navigate(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if page.Redirected() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d -> %s\n", page.Status, page.Location)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", page.Status)
			return nil
		},
	}
}

func watchCmd(g *globals) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print session changes until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.redisURL == "" {
				return errors.New("watch needs --redis-url: an in-memory session cannot change from outside")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			unsubscribe := e.store.Observe(ctx, func(st session.State) {
				printState(cmd, st, st.Authenticated(time.Now()))
			}, interval)
			defer unsubscribe()

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", session.DefaultPollInterval, "poll interval")

	return cmd
}

func printUser(cmd *cobra.Command, prefix string, u *models.UserResponse) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s <%s> (%s)\n", prefix, u.Username, u.Email, u.ID)
}

func printState(cmd *cobra.Command, st session.State, authenticated bool) {
	switch {
	case !st.Present:
		fmt.Fprintln(cmd.OutOrStdout(), "signed out")
	case authenticated:
		exp, _ := token.ExpiresAt(st.AccessToken)
		fmt.Fprintf(cmd.OutOrStdout(), "signed in, access token %s expires %s\n", redact.Token(), exp.Local().Format(time.RFC3339))
	default:
		fmt.Fprintln(cmd.OutOrStdout(), "session stored, access token expired")
	}
}

func passwordOrEnv(flag string) string {
	if flag != "" {
		return flag
	}

	return os.Getenv("PORTAL_PASSWORD")
}
