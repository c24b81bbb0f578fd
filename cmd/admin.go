package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yourusername/facturas/config"
	"github.com/yourusername/facturas/logger"
	"github.com/yourusername/facturas/models"
	"github.com/yourusername/facturas/utils"
	"gorm.io/gorm"
)

var createAdminCmd = &cobra.Command{
	Use:     "create-admin",
	Short:   "Create the root administrator",
	Example: `  facturas create-admin --username admin --password 'change-me' --full-name "Administrador"`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		fullName, _ := cmd.Flags().GetString("full-name")

		db, err := config.InitDB(cfg)
		if err != nil {
			return err
		}
		user, err := createRootAdmin(db, username, password, fullName)
		if err != nil {
			return err
		}

		log := logger.WithComponent("admin")
		log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("Root administrator created")
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password for a user",
	Long: `Set a new password for any user. The user must change it again
at the next login.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		db, err := config.InitDB(cfg)
		if err != nil {
			return err
		}
		if err := resetPassword(db, username, password); err != nil {
			return err
		}

		log := logger.WithComponent("admin")
		log.Info().Str("username", username).Msg("Password reset")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createAdminCmd, resetPasswordCmd)

	createAdminCmd.Flags().String("username", "admin", "Login name")
	createAdminCmd.Flags().String("password", "", "Initial password [REQUIRED]")
	createAdminCmd.Flags().String("full-name", "Administrador", "Display name")
	createAdminCmd.MarkFlagRequired("password")

	resetPasswordCmd.Flags().String("username", "", "Login name [REQUIRED]")
	resetPasswordCmd.Flags().String("password", "", "New password [REQUIRED]")
	resetPasswordCmd.MarkFlagRequired("username")
	resetPasswordCmd.MarkFlagRequired("password")
}

// createRootAdmin creates the single root user. It refuses to run twice.
func createRootAdmin(db *gorm.DB, username, password, fullName string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username is required")
	}

	var roots int64
	if err := db.Model(&models.User{}).Where("is_root = ?", true).Count(&roots).Error; err != nil {
		return nil, err
	}
	if roots > 0 {
		return nil, errors.New("a root administrator already exists")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         models.RoleAdmin,
		IsActive:     true,
		IsRoot:       true,
	}
	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("username %q is taken", username)
		}
		return nil, err
	}
	return user, nil
}

func resetPassword(db *gorm.DB, username, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	result := db.Model(&models.User{}).Where("username = ?", username).Updates(map[string]interface{}{
		"password_hash":        hash,
		"must_change_password": true,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %q not found", username)
	}
	return nil
}
