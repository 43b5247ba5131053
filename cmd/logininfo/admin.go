package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"logininfo/internal/auth"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	adminUsername string
	adminRole     string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage administrator accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user (password is read from the terminal or stdin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(adminUsername) == "" {
			return fmt.Errorf("--username is required")
		}
		if !auth.ValidRole(adminRole) {
			return fmt.Errorf("%w: %s", auth.ErrInvalidRole, adminRole)
		}
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}

		rt, err := openApp()
		if err != nil {
			return err
		}
		defer rt.Close()

		id, err := auth.NewService(rt.db.DB).CreateUser(adminUsername, password, adminRole)
		if err != nil {
			return err
		}
		cmd.Printf("Created %s user %s (id %d)\n", adminRole, strings.ToLower(adminUsername), id)
		return nil
	},
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminUsername, "username", "", "login name")
	adminCreateCmd.Flags().StringVar(&adminRole, "role", auth.RoleAdmin, "role: admin or member")
	adminCmd.AddCommand(adminCreateCmd)
	rootCmd.AddCommand(adminCmd)
}
