package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) newLoginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				email = a.cfg.Email
			}
			if email == "" {
				return a.printer.Error("Email required", "", "Run: boardctl login --email you@example.com")
			}
			pw, err := a.password(cmd, password)
			if err != nil {
				return err
			}

			c := a.client()
			session, err := c.Login(cmd.Context(), email, pw)
			if err != nil {
				return a.fail("log in", err)
			}
			a.cfg.Token = session.Token
			a.cfg.Email = session.User.Email
			if err := a.saveConfig(); err != nil {
				return a.fail("save config", err)
			}
			a.printer.Success("Logged in as %s <%s>", session.User.Name, session.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (read from stdin when omitted)")
	return cmd
}

func (a *app) newRegisterCommand() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and store the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := a.password(cmd, password)
			if err != nil {
				return err
			}
			session, err := a.client().Register(cmd.Context(), name, email, pw)
			if err != nil {
				return a.fail("register", err)
			}
			a.cfg.Token = session.Token
			a.cfg.Email = session.User.Email
			if err := a.saveConfig(); err != nil {
				return a.fail("save config", err)
			}
			a.printer.Success("Registered %s <%s>", session.User.Name, session.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			a.cfg.Token = ""
			if err := a.saveConfig(); err != nil {
				return a.fail("save config", err)
			}
			a.printer.Success("Logged out")
			return nil
		},
	}
}

func (a *app) newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.authed()
			if err != nil {
				return err
			}
			me, err := c.Me(cmd.Context())
			if err != nil {
				return a.fail("fetch user", err)
			}
			a.printer.Info("%s <%s>", me.Name, me.Email)
			a.printer.Muted("id %s on %s", me.ID, a.cfg.Server)
			return nil
		},
	}
}

// password returns flag when set, otherwise the first line of stdin.
func (a *app) password(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", a.printer.Error("Password required", err.Error())
		}
		return "", a.printer.Error("Password required", "")
	}
	return line, nil
}
