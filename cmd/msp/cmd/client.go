package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"msp-toolkit/internal/model"
	"msp-toolkit/internal/service"
)

var (
	clientTier     string
	clientStatus   string
	clientSearch   string
	clientName     string
	clientEmail    string
	onboardTmpl    string
	clientShowJSON bool
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Manage clients",
}

var clientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clients",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(cmd)
		defer a.Close()

		clients, err := a.clients.List(cmd.Context(), model.ClientFilter{
			Tier:   model.ClientTier(strings.ToLower(clientTier)),
			Status: model.ClientStatus(strings.ToLower(clientStatus)),
			Search: clientSearch,
		})
		if err != nil {
			fail(err)
		}
		if len(clients) == 0 {
			warn("No clients found")
			return
		}

		fmt.Printf("%-20s %-30s %-8s %-10s %s\n", bold("ID"), bold("NAME"), bold("TIER"), bold("STATUS"), bold("CONTACT"))
		for _, c := range clients {
			fmt.Printf("%-20s %-30s %-8s %-10s %s\n", c.ID, c.Name, c.Tier, c.Status, c.ContactEmail)
		}
	},
}

var clientAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add a client",
	Example: `  msp client add acme-corp --name "Acme Corp" --email ops@acme.example --tier gold`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(cmd)
		defer a.Close()

		name := clientName
		if name == "" {
			name = args[0]
		}
		client, err := a.clients.Create(cmd.Context(), service.CreateClientInput{
			ID:           args[0],
			Name:         name,
			ContactEmail: clientEmail,
			Tier:         model.ClientTier(clientTier),
		})
		if err != nil {
			fail(err)
		}
		success("Client %s created (tier %s)", client.ID, client.Tier)
	},
}

var clientShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a client",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(cmd)
		defer a.Close()

		client, err := a.clients.Get(cmd.Context(), args[0])
		if err != nil {
			fail(err)
		}
		if clientShowJSON {
			out, err := json.MarshalIndent(client, "", "  ")
			if err != nil {
				fail(err)
			}
			fmt.Println(string(out))
			return
		}

		fmt.Printf("%s\n", bold(client.Name))
		fmt.Printf("   ID:      %s\n", client.ID)
		fmt.Printf("   Tier:    %s\n", client.Tier)
		fmt.Printf("   Status:  %s\n", client.Status)
		if client.ContactEmail != "" {
			fmt.Printf("   Contact: %s\n", client.ContactEmail)
		}
		fmt.Printf("   Created: %s\n", client.CreatedAt.Format(timeLayout))
	},
}

var clientDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a client with its devices and history",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(cmd)
		defer a.Close()

		if err := a.clients.Delete(cmd.Context(), args[0]); err != nil {
			fail(err)
		}
		success("Client %s deleted", args[0])
	},
}

var clientOnboardCmd = &cobra.Command{
	Use:   "onboard <id>",
	Short: "Run the onboarding workflow for a client",
	Long: fmt.Sprintf(`Run an onboarding template for an existing client. The last step runs
the default health checks.

Templates: %s`, strings.Join(service.OnboardTemplates(), ", ")),
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(cmd)
		defer a.Close()

		result, err := a.clients.Onboard(cmd.Context(), args[0], onboardTmpl)
		if err != nil {
			fail(err)
		}

		success("%s", result.Message)
		fmt.Printf("   Template: %s\n", result.Template)
		fmt.Println("   Steps completed:")
		for _, step := range result.StepsCompleted {
			fmt.Printf("     ✅ %s\n", step)
		}
		if len(result.InitialChecks) > 0 {
			fmt.Println("   Initial health checks:")
			printResults(result.InitialChecks)
		}
	},
}

func init() {
	rootCmd.AddCommand(clientCmd)
	clientCmd.AddCommand(clientListCmd, clientAddCmd, clientShowCmd, clientDeleteCmd, clientOnboardCmd)

	clientListCmd.Flags().StringVar(&clientTier, "tier", "", "filter by tier (bronze, silver, gold, premium)")
	clientListCmd.Flags().StringVar(&clientStatus, "status", "", "filter by status (active, inactive, suspended, pending)")
	clientListCmd.Flags().StringVar(&clientSearch, "search", "", "search by id or name")

	clientAddCmd.Flags().StringVar(&clientName, "name", "", "display name (defaults to the id)")
	clientAddCmd.Flags().StringVar(&clientEmail, "email", "", "primary contact email")
	clientAddCmd.Flags().StringVar(&clientTier, "tier", "bronze", "service tier (bronze, silver, gold, premium)")

	clientShowCmd.Flags().BoolVar(&clientShowJSON, "json", false, "print as JSON")

	clientOnboardCmd.Flags().StringVar(&onboardTmpl, "template", service.OnboardTemplateStandardBusiness, "onboarding template")
}
