package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/gatekit/gatekit/internal/model"
	"github.com/gatekit/gatekit/internal/service"
	"github.com/gatekit/gatekit/internal/store"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
		Long: `Create, promote, and list admin accounts.

Roles never change through the HTTP API, so the first admin (and every
promotion) goes through this command against the store directly.`,
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminPromoteCmd())
	cmd.AddCommand(newAdminListCmd())

	return cmd
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		email    string
		password string
		fullName string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new admin account",
		Example: `  gatekit admin create --email admin@example.com --name "Site Admin"
  gatekit admin create --email admin@example.com --password secret123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCreate(email, password, fullName)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")
	cmd.Flags().StringVar(&fullName, "name", "", "Admin display name (required)")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("name")

	return cmd
}

func runAdminCreate(email, password, fullName string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %q", email)
	}
	if len(fullName) < 2 || len(fullName) > 100 {
		return fmt.Errorf("name must be between 2 and 100 characters")
	}

	if password == "" {
		var err error
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	defer st.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), service.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Status:       model.StatusActive,
	}
	if err := st.CreateUser(context.Background(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return fmt.Errorf("an account with email %q already exists; use 'gatekit admin promote' instead", email)
		}
		return err
	}

	fmt.Printf("Created admin account %q (%s)\n", email, user.ID)
	return nil
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Println()

	if string(pwBytes) != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pwBytes), nil
}

// ---------- admin promote ----------

func newAdminPromoteCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Promote an existing account to admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminPromote(email)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the account to promote (required)")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runAdminPromote(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	user, err := st.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no account with email %q", email)
		}
		return err
	}
	if user.Role == model.RoleAdmin {
		fmt.Printf("%q is already an admin\n", email)
		return nil
	}

	if err := st.SetRole(ctx, user.ID, model.RoleAdmin); err != nil {
		return err
	}

	fmt.Printf("Promoted %q to admin\n", email)
	return nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all admin accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminList(jsonOutput bool) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	// Walk all pages; admin counts are small.
	var admins []model.User
	for offset := 0; ; offset += 100 {
		users, err := st.ListUsers(ctx, offset, 100)
		if err != nil {
			return err
		}
		if len(users) == 0 {
			break
		}
		for _, u := range users {
			if u.Role == model.RoleAdmin {
				admins = append(admins, u)
			}
		}
	}

	if jsonOutput {
		views := make([]map[string]interface{}, 0, len(admins))
		for i := range admins {
			views = append(views, admins[i].PublicView())
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	if len(admins) == 0 {
		fmt.Println("No admin accounts. Use 'gatekit admin create' to create one.")
		return nil
	}

	fmt.Printf("%-30s %-24s %-8s\n", "EMAIL", "NAME", "STATUS")
	fmt.Printf("%-30s %-24s %-8s\n", "-----", "----", "------")
	for _, a := range admins {
		fmt.Printf("%-30s %-24s %-8s\n", a.Email, a.FullName, a.Status)
	}

	return nil
}
