package main

import (
	"context"
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	dbfs "github.com/garnizeh/wellbeing/db"
	"github.com/garnizeh/wellbeing/internal/db"
	"github.com/garnizeh/wellbeing/internal/repository/sqlite"
	"github.com/garnizeh/wellbeing/pkg/models"
	"github.com/garnizeh/wellbeing/pkg/repository"
)

type newUser struct {
	Name       string
	Email      string
	Password   string
	Role       string
	Department string
}

// addUser creates an account. Unlike self-registration it may create admins.
func addUser(ctx context.Context, users repository.UserRepo, in newUser) (int64, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if strings.TrimSpace(in.Name) == "" {
		return 0, fmt.Errorf("name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return 0, fmt.Errorf("invalid email %q", in.Email)
	}
	if len(in.Password) < 8 {
		return 0, fmt.Errorf("password must be at least 8 characters")
	}
	if in.Role != models.RoleAdmin && in.Role != models.RoleEmployee {
		return 0, fmt.Errorf("role must be %s or %s", models.RoleAdmin, models.RoleEmployee)
	}

	existing, err := users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, fmt.Errorf("a user with email %s already exists", in.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{Name: strings.TrimSpace(in.Name), Email: in.Email, PasswordHash: string(hash), Role: in.Role}
	if d := strings.TrimSpace(in.Department); d != "" {
		u.Department = &d
	}
	return users.CreateUser(ctx, u)
}

func NewAddUserCommand() *cobra.Command {
	in := newUser{}

	cmd := &cobra.Command{
		Use:   "add-user",
		Short: "Create a user account, admin by default",
		Long: `Create a user account. The password is read from --password or,
when that is empty, from the WELLBEING_USER_PASSWORD environment variable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if in.Password == "" {
				in.Password = os.Getenv("WELLBEING_USER_PASSWORD")
			}
			ctx := cmd.Context()

			database, err := db.New(ctx, cfg.DatabasePath, logger)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer database.Close()

			if err := db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			id, err := addUser(ctx, sqlite.New(database, logger), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %d (%s)\n", in.Role, id, in.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Login email")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (at least 8 characters)")
	cmd.Flags().StringVar(&in.Role, "role", models.RoleAdmin, "Role: admin or employee")
	cmd.Flags().StringVar(&in.Department, "department", "", "Department")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
