package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

// ClientFactory builds a Client once flags have been parsed.
type ClientFactory func() *Client

type account struct {
	UID           string `json:"id"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	EmailVerified bool   `json:"emailVerified"`
}

type status struct {
	State    string `json:"state"`
	Snapshot *struct {
		UID         string `json:"id"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	} `json:"snapshot"`
}

func stdinReader(cmd *cobra.Command) *bufio.Reader {
	return bufio.NewReader(cmd.InOrStdin())
}

func report(cmd *cobra.Command, message, fallback string) {
	if message == "" {
		message = fallback
	}
	fmt.Fprintln(cmd.OutOrStdout(), message)
}

func credentials(cmd *cobra.Command, email string, r *bufio.Reader) (string, string, error) {
	var err error
	if email == "" {
		if email, err = promptLine(r, cmd.ErrOrStderr(), "Email"); err != nil {
			return "", "", err
		}
	}
	password, err := promptPassword(r, cmd.ErrOrStderr(), "Password")
	if err != nil {
		return "", "", err
	}
	return email, password, nil
}

// NewSignupCmd creates the signup command.
func NewSignupCmd(client ClientFactory) *cobra.Command {
	var email, displayName string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := credentials(cmd, email, stdinReader(cmd))
			if err != nil {
				return err
			}
			body := map[string]interface{}{"email": email, "password": password}
			if cmd.Flags().Changed("name") {
				body["displayName"] = displayName
			}
			var acct account
			msg, err := client().Do(cmd.Context(), http.MethodPost, "/api/v1/auth/signup", body, &acct)
			if err != nil {
				return err
			}
			report(cmd, msg, "Signed up as "+acct.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&displayName, "name", "", "Display name")
	return cmd
}

// NewLoginCmd creates the login command.
func NewLoginCmd(client ClientFactory) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := credentials(cmd, email, stdinReader(cmd))
			if err != nil {
				return err
			}
			var acct account
			msg, err := client().Do(cmd.Context(), http.MethodPost, "/api/v1/auth/login",
				map[string]string{"email": email, "password": password}, &acct)
			if err != nil {
				return err
			}
			report(cmd, msg, "Signed in as "+acct.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	return cmd
}

// NewLogoutCmd creates the logout command.
func NewLogoutCmd(client ClientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := client().Do(cmd.Context(), http.MethodPost, "/api/v1/auth/logout", nil, nil)
			if err != nil {
				return err
			}
			report(cmd, msg, "Signed out")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command.
func NewWhoamiCmd(client ClientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var st status
			if _, err := client().Do(cmd.Context(), http.MethodGet, "/api/v1/auth/session", nil, &st); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if st.Snapshot == nil {
				fmt.Fprintf(out, "%s\n", st.State)
				return nil
			}
			fmt.Fprintf(out, "%s as %s (%s)\n", st.State, st.Snapshot.Email, st.Snapshot.UID)
			if st.Snapshot.DisplayName != "" {
				fmt.Fprintf(out, "Display name: %s\n", st.Snapshot.DisplayName)
			}
			return nil
		},
	}
}

// NewResetPasswordCmd creates the reset-password command.
func NewResetPasswordCmd(client ClientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password EMAIL",
		Short: "Send a password reset email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := client().Do(cmd.Context(), http.MethodPost, "/api/v1/auth/password-reset",
				map[string]string{"email": args[0]}, nil)
			if err != nil {
				return err
			}
			report(cmd, msg, "Password reset email sent")
			return nil
		},
	}
}

// NewProfileCmd creates the profile command group.
func NewProfileCmd(client ClientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change the signed-in user's profile",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the merged profile as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			var merged json.RawMessage
			msg, err := client().Do(cmd.Context(), http.MethodGet, "/api/v1/me/profile", nil, &merged)
			if err != nil {
				return err
			}
			if msg != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), msg)
			}
			return printJSON(cmd, merged)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set FIELD=VALUE...",
		Short: "Update profile fields, e.g. displayName=Ann bio=\"\"",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := parseAssignments(args)
			if err != nil {
				return err
			}
			msg, err := client().Do(cmd.Context(), http.MethodPatch, "/api/v1/me/profile", body, nil)
			if err != nil {
				return err
			}
			report(cmd, msg, "Profile updated")
			return nil
		},
	})
	return cmd
}

// NewSyncCmd creates the sync command.
func NewSyncCmd(client ClientFactory) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push profile changes saved on this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client()
			if list {
				var pending json.RawMessage
				if _, err := c.Do(cmd.Context(), http.MethodGet, "/api/v1/outbox", nil, &pending); err != nil {
					return err
				}
				return printJSON(cmd, pending)
			}
			var rep struct {
				Replayed  int `json:"replayed"`
				Dropped   int `json:"dropped"`
				Remaining int `json:"remaining"`
			}
			if _, err := c.Do(cmd.Context(), http.MethodPost, "/api/v1/profiles/sync", nil, &rep); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d, dropped %d, still queued %d\n", rep.Replayed, rep.Dropped, rep.Remaining)
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "List queued writes instead of pushing them")
	return cmd
}

var profileFields = map[string]bool{
	"displayName": true,
	"photoURL":    true,
	"firstName":   true,
	"lastName":    true,
	"phoneNumber": true,
	"dateOfBirth": true,
	"bio":         true,
}

func parseAssignments(args []string) (map[string]string, error) {
	body := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected FIELD=VALUE, got %q", arg)
		}
		if !profileFields[key] {
			return nil, fmt.Errorf("unknown profile field %q", key)
		}
		body[key] = value
	}
	return body, nil
}

func printJSON(cmd *cobra.Command, raw json.RawMessage) error {
	if len(raw) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "null")
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
