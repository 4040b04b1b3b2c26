package cmd

import (
	"strconv"

	"github.com/habedi/petcli/client"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func loginCmd(a *app) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the PetCare API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			name, err := p.valueOrPrompt(username, "Username: ")
			if err != nil {
				return err
			}
			password, err := p.promptForPassword("Password: ")
			if err != nil {
				return err
			}

			creds := client.LoginCredentials{Username: name, Password: password}
			if _, err := a.auth.Login(cmd.Context(), creds); err != nil {
				return err
			}
			cmd.Printf("Logged in as %s.\n", name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username to log in with (prompted when omitted)")
	return cmd
}

func registerCmd(a *app) *cobra.Command {
	var data client.RegisterData
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			var err error
			if data.Username, err = p.valueOrPrompt(data.Username, "Username: "); err != nil {
				return err
			}
			if data.Email, err = p.valueOrPrompt(data.Email, "Email: "); err != nil {
				return err
			}
			if data.Name, err = p.valueOrPrompt(data.Name, "Full name: "); err != nil {
				return err
			}
			if data.Password, err = p.promptForPassword("Password: "); err != nil {
				return err
			}
			confirm, err := p.promptForPassword("Confirm password: ")
			if err != nil {
				return err
			}

			user, err := a.auth.Register(cmd.Context(), data, confirm)
			if err != nil {
				return err
			}
			cmd.Printf("Account %q created. Run 'petcli login' to start a session.\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&data.Username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&data.Email, "email", "e", "", "Email address")
	cmd.Flags().StringVarP(&data.Name, "name", "n", "", "Full name")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session and the local animal cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.auth.Logout(); err != nil {
				return err
			}
			if err := a.cache.Clear(cmd.Context()); err != nil {
				log.Warn().Err(err).Msg("Failed to clear the animal cache")
			}
			cmd.Println("Logged out.")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			user, err := a.auth.Me(cmd.Context())
			if err != nil {
				return err
			}
			table := newTable(cmd.OutOrStdout(), "Field", "Value")
			table.AppendBulk([][]string{
				{"ID", strconv.Itoa(user.ID)},
				{"Username", user.Username},
				{"Name", user.Name},
				{"Email", user.Email},
			})
			table.Render()
			return nil
		},
	}
}
