/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"gazette/cmd/handlers"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gazette",
	Short: "Gazette curates, writes, and delivers a daily AI-authored newsletter.",
	Long: `Gazette is a newsletter curation and monetization service.

It fetches trending news, drafts newsletter content and marketing emails
with a hosted language model, persists issues to Postgres, serves them over
an HTTP API, and manages paid subscriptions through Stripe.

Commands:
  run       execute one newsletter pipeline run
  schedule  run the pipeline on a recurring cron schedule
  serve     start the HTTP API server`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It is called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default is $HOME/.gazette.yaml)")

	rootCmd.AddCommand(handlers.NewRunCmd())
	rootCmd.AddCommand(handlers.NewScheduleCmd())
	rootCmd.AddCommand(handlers.NewServeCmd())
}
