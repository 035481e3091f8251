package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/invoice-agent/internal/models"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Manage clients",
}

var (
	clientName    string
	clientContact string
	clientEmail   string
	clientPhone   string
	clientAddress string
	clientNotes   string
)

var clientAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a client",
	Args:  cobra.NoArgs,
	RunE:  runClientAdd,
}

var clientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clients",
	Args:  cobra.NoArgs,
	RunE:  runClientList,
}

func init() {
	clientAddCmd.Flags().StringVar(&clientName, "name", "", "Client name (required)")
	clientAddCmd.Flags().StringVar(&clientContact, "contact", "", "Contact person")
	clientAddCmd.Flags().StringVar(&clientEmail, "email", "", "Contact email")
	clientAddCmd.Flags().StringVar(&clientPhone, "phone", "", "Contact phone")
	clientAddCmd.Flags().StringVar(&clientAddress, "address", "", "Billing address")
	clientAddCmd.Flags().StringVar(&clientNotes, "notes", "", "Free-form notes")
	clientAddCmd.MarkFlagRequired("name")

	clientCmd.AddCommand(clientAddCmd)
	clientCmd.AddCommand(clientListCmd)
}

func runClientAdd(cmd *cobra.Command, args []string) error {
	client := &models.Client{
		Name:        clientName,
		ContactName: clientContact,
		Email:       clientEmail,
		Phone:       clientPhone,
		Address:     clientAddress,
		Notes:       clientNotes,
	}
	if err := app.Clients.Create(client); err != nil {
		return err
	}
	fmt.Printf("Created client %d: %s\n", client.ID, client.Name)
	return nil
}

func runClientList(cmd *cobra.Command, args []string) error {
	clients, err := app.Clients.List()
	if err != nil {
		return err
	}
	if len(clients) == 0 {
		fmt.Println("No clients found.")
		return nil
	}
	fmt.Printf("%-5s %-30s %-25s\n", "ID", "Name", "Email")
	for _, c := range clients {
		fmt.Printf("%-5d %-30s %-25s\n", c.ID, c.Name, c.Email)
	}
	return nil
}
