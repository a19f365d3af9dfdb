package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/store"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/config"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/models"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/postgres"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [service]",
		Short: "Create the tables of a service (api, audit or analytics)",
		Long: `Create the tables a service needs. The service defaults to api.
The database URL is read from DATABASE_URL, or <SERVICE>_DATABASE_URL when set.

Examples:
  customerctl migrate
  customerctl migrate audit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service := "api"
			if len(args) == 1 {
				service = args[0]
			}
			cfg := config.LoadForService(service)

			db, err := postgres.Connect(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer db.Close()

			if err := postgres.RunMigrations(cmd.Context(), db, service); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied for %s\n", service)
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every customer record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			db, err := postgres.Connect(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer db.Close()

			customers, err := store.NewCustomerStore(db).List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(customers)
			}
			return printCustomers(cmd, customers)
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}

func printCustomers(cmd *cobra.Command, customers []models.Customer) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tCITY\tCOUNTRY")
	for _, c := range customers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Email, c.City, c.Country)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d customer(s)\n", len(customers))
	return nil
}
