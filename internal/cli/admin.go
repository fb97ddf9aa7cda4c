package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/car-dealership/internal/database"
	"github.com/iliyamo/car-dealership/internal/model"
	"github.com/iliyamo/car-dealership/internal/repository"
)

var (
	adminUsername string
	adminEmail    string
	adminPassword string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

// adminCreateCmd seeds an admin.  Registration over HTTP only ever
// creates clients, so this is how the first admin comes to exist.
var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin user",
	Long: `Create an admin user directly in the database.

Examples:
  server admin create --username boss --email boss@example.com --password s3cret`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email := model.NormalizeEmail(adminEmail)
		if strings.TrimSpace(adminUsername) == "" || email == "" || adminPassword == "" {
			return errors.New("--username, --email and --password are required")
		}
		if !model.ValidEmail(email) {
			return fmt.Errorf("invalid email %q", adminEmail)
		}

		cfg, lg, err := bootstrap()
		if err != nil {
			return err
		}
		db, err := database.Open(cfg.DSN())
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		id, err := repository.NewUserRepo(db).Create(ctx, strings.TrimSpace(adminUsername), email, adminPassword, model.RoleAdmin, cfg.BcryptCost)
		if err != nil {
			if errors.Is(err, repository.ErrEmailExists) {
				return fmt.Errorf("a user with email %s already exists", email)
			}
			return err
		}
		lg.Info("admin created", "user_id", id, "email", email)
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminUsername, "username", "", "display name")
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "login email")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "login password")
	adminCmd.AddCommand(adminCreateCmd)
	rootCmd.AddCommand(adminCmd)
}
