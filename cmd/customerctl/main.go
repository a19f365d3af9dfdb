// Command customerctl is the operator tool for the customers service: it runs
// migrations, lists records and plays the orders service side of the
// messaging contract.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/config"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	rootCmd := &cobra.Command{
		Use:     "customerctl",
		Short:   "customerctl - operate the customers service",
		Version: Version,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(replyOrdersCmd())
	rootCmd.AddCommand(pushVerifyCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the same environment the services use.
func loadConfig() *config.Config {
	return config.Load()
}
