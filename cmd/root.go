package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ragbot/src/log"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "ragbot",
	Short: "Retrieval augmented chatbot with an admin console",
	Long: `ragbot answers questions from a vector index kept in object storage.
The serve command runs the chatbot, admin runs the console that manages the
source documents, and publish-index builds the index from those documents.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// a missing .env file is fine, variables may come from the environment
		if err := godotenv.Load(envFile); err != nil && envFile != ".env" {
			return err
		}
		return log.Setup(viper.GetString("log.level"), viper.GetBool("log.development"))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading configuration")

	settingDefaultConfig()
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
