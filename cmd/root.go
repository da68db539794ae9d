package cmd

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/log"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "solanize",
	Short:         "Solanize AI agent wallet client",
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			log.Fatalf("Error calling help command: %s", err.Error())
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func init() {
	log.DefaultLogger = log.New()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("Loading .env file: %v", err)
	}

	rootCmd.AddCommand((&loginCmd{}).Command())
	rootCmd.AddCommand((&chatCmd{}).Command())
	rootCmd.AddCommand((&sessionsCmd{}).Command())
	rootCmd.AddCommand((&portfolioCmd{}).Command())
	rootCmd.AddCommand((&healthCmd{}).Command())
	rootCmd.AddCommand((&migrateCmd{}).Command())
}
