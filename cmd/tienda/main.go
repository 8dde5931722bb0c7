package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose bool
	apiURL  string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tienda",
	Short: "tienda - Terminal storefront",
	Long: `tienda is a terminal client for the tienda e-commerce backend.

Browse the catalog, manage your cart, check out and review your orders
without leaving the terminal.

Run without arguments to start the interactive storefront.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip logger init for interactive mode (it has its own UI)
		if cmd.Use == "tienda" && cmd.CalledAs() == "tienda" {
			return nil
		}

		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: launch the interactive storefront
		return runShop()
	},
}

var loginCmd = &cobra.Command{
	Use:   "login [email]",
	Short: "Log in and cache the session",
	Long: `Authenticates against the backend and stores the session under
~/.tienda/session.json. The password is read from the terminal, or from
the TIENDA_PASSWORD environment variable when set.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and remove the cached session",
	RunE:  runLogout,
}

var recoverCmd = &cobra.Command{
	Use:   "recover [email]",
	Short: "Request a password recovery email",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecover,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	Long: `Creates a new account and logs it in.

Example:
  tienda register --nombre Ana --apellidos García --email ana@ejemplo.com`,
	RunE: runRegister,
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List the product catalog",
	RunE:  runProducts,
}

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List your order history",
	RunE:  runOrders,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the cached session identity",
	RunE:  runWhoami,
}

var (
	regNombre    string
	regApellidos string
	regEmail     string
	regTelefono  string
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "backend API base URL override")

	registerCmd.Flags().StringVar(&regNombre, "nombre", "", "first name (required)")
	registerCmd.Flags().StringVar(&regApellidos, "apellidos", "", "last name")
	registerCmd.Flags().StringVar(&regEmail, "email", "", "email address (required)")
	registerCmd.Flags().StringVar(&regTelefono, "telefono", "", "phone number")
	_ = registerCmd.MarkFlagRequired("nombre")
	_ = registerCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
