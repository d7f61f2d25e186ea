package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/microtest/packages/core/config"
	"github.com/spf13/cobra"
)

var (
	forceInit bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a microtest configuration",
	Long: `Initialize microtest in the current directory.

This creates:
  - .microtest.yaml   - Configuration file with defaults
  - mock-routes.yaml  - Example routes for 'microtest mock'

Examples:
  microtest init
  microtest init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to initialize")
}

const exampleRoutes = `routes:
  - method: GET
    path: /health
    body: ok
  - method: GET
    path: /users/{{id}}
    json:
      id: "{{id}}"
      name: Example User
  - method: POST
    path: /users
    status: 201
    json:
      id: "42"
`

func initCommand(cmd *cobra.Command, args []string) error {
	configFile := filepath.Join(initDir, ".microtest.yaml")
	routesFile := filepath.Join(initDir, "mock-routes.yaml")

	if !forceInit {
		for _, f := range []string{configFile, routesFile} {
			if _, err := os.Stat(f); err == nil {
				return withExitCode(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	cfg := config.DefaultConfig()
	cfg.BaseURL = "http://localhost:3000"
	cfg.Headers = map[string]string{"User-Agent": "microtest/" + version}
	if err := cfg.SaveConfig(configFile); err != nil {
		return withExitCode(ExitConfigError, fmt.Errorf("failed to create config file: %w", err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(routesFile, []byte(exampleRoutes), 0644); err != nil {
		return fmt.Errorf("failed to create routes file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", routesFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nmicrotest initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'microtest mock mock-routes.yaml' and then 'microtest request GET /health --expect-status 200'.\n")

	return nil
}
