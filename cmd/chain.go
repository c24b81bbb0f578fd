package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/yourusername/facturas/config"
	"github.com/yourusername/facturas/invoicing"
	"github.com/yourusername/facturas/lock"
	"github.com/yourusername/facturas/models"
	"github.com/yourusername/facturas/store"
	"gorm.io/gorm"
)

var chainCmd = &cobra.Command{
	Use:   "chain [company-id...]",
	Short: "Validate the invoice chain of one or more companies",
	Long: `Walk the finalized invoices of each company in sequence order and report
the first gap or broken hash link. Without arguments every company with
Veri*Factu enabled is checked. Exits non-zero if any chain is broken.`,
	Example: `  facturas chain 1
  facturas chain`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]uint, 0, len(args))
		for _, arg := range args {
			id, err := strconv.ParseUint(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid company id %q", arg)
			}
			ids = append(ids, uint(id))
		}

		db, err := config.InitDB(cfg)
		if err != nil {
			return err
		}
		service := newService(cfg, store.New(db), lock.NewMemoryLocker())
		return validateChains(cmd.Context(), cmd.OutOrStdout(), db, service, ids)
	},
}

func init() {
	rootCmd.AddCommand(chainCmd)
}

// validateChains prints one line per company and returns the first broken
// chain as a *invoicing.ChainIntegrityError.
func validateChains(ctx context.Context, out io.Writer, db *gorm.DB, service *invoicing.Service, ids []uint) error {
	if len(ids) == 0 {
		if err := db.Model(&models.Company{}).Where("verifactu_enabled = ?", true).Order("id").Pluck("id", &ids).Error; err != nil {
			return err
		}
	}

	var firstBroken error
	for _, id := range ids {
		result, err := service.ValidateChain(ctx, id)
		if err != nil {
			return err
		}
		if result.Valid {
			fmt.Fprintf(out, "company %d: OK (%d invoices, last sequence %d)\n", id, result.Checked, result.LastSequence)
			continue
		}
		fmt.Fprintf(out, "company %d: BROKEN at %s: %s\n", id, result.InvoiceNumber, result.Message)
		if firstBroken == nil {
			firstBroken = &invoicing.ChainIntegrityError{CompanyID: id, Result: result}
		}
	}
	return firstBroken
}

// IsChainBroken reports whether err came from a failed chain validation.
func IsChainBroken(err error) bool {
	var integrity *invoicing.ChainIntegrityError
	return errors.As(err, &integrity)
}
