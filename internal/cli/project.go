package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/garyjia/invoice-agent/internal/models"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var (
	projectClientID      int64
	projectName          string
	projectDescription   string
	projectRate          string
	projectEquityType    string
	projectEquityPerHour string
	projectEquityDetails string
)

var projectAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a project for a client",
	Args:  cobra.NoArgs,
	RunE:  runProjectAdd,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects for a client",
	Args:  cobra.NoArgs,
	RunE:  runProjectList,
}

func init() {
	projectAddCmd.Flags().Int64Var(&projectClientID, "client-id", 0, "Owning client ID (required)")
	projectAddCmd.Flags().StringVar(&projectName, "name", "", "Project name (required)")
	projectAddCmd.Flags().StringVar(&projectDescription, "description", "", "Project description")
	projectAddCmd.Flags().StringVar(&projectRate, "rate", "", "Hourly rate, e.g. 100.00 (required)")
	projectAddCmd.Flags().StringVar(&projectEquityType, "equity-type", "", "Equity kind, e.g. RSU or options")
	projectAddCmd.Flags().StringVar(&projectEquityPerHour, "equity-per-hour", "", "Equity units accrued per billed hour")
	projectAddCmd.Flags().StringVar(&projectEquityDetails, "equity-details", "", "Equity terms description")
	projectAddCmd.MarkFlagRequired("client-id")
	projectAddCmd.MarkFlagRequired("name")
	projectAddCmd.MarkFlagRequired("rate")

	projectListCmd.Flags().Int64Var(&projectClientID, "client-id", 0, "Client ID (required)")
	projectListCmd.MarkFlagRequired("client-id")

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	rate, err := decimal.NewFromString(projectRate)
	if err != nil {
		return fmt.Errorf("invalid rate %q: %w", projectRate, err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("rate must not be negative")
	}

	if _, err := app.Clients.GetByID(projectClientID); err != nil {
		return err
	}

	project := &models.Project{
		ClientID:    projectClientID,
		Name:        projectName,
		Description: projectDescription,
		HourlyRate:  rate,
		IsActive:    true,
	}
	if projectEquityType != "" {
		project.EquityType = &projectEquityType
	}
	if projectEquityPerHour != "" {
		perHour, err := decimal.NewFromString(projectEquityPerHour)
		if err != nil {
			return fmt.Errorf("invalid equity-per-hour %q: %w", projectEquityPerHour, err)
		}
		project.EquityAmountPerHour = &perHour
	}
	if projectEquityDetails != "" {
		project.EquityDetails = &projectEquityDetails
	}

	if err := app.Projects.Create(project); err != nil {
		return err
	}
	fmt.Printf("Created project %d: %s (rate %s/h)\n", project.ID, project.Name, project.HourlyRate.StringFixed(2))
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	projects, err := app.Projects.ListByClient(projectClientID)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return nil
	}
	fmt.Printf("%-5s %-30s %10s %-10s\n", "ID", "Name", "Rate", "Equity")
	for _, p := range projects {
		equity := "-"
		if p.HasEquityTerms() {
			equity = fmt.Sprintf("%s %s/h", *p.EquityType, p.EquityAmountPerHour.String())
		}
		fmt.Printf("%-5d %-30s %10s %-10s\n", p.ID, p.Name, p.HourlyRate.StringFixed(2), equity)
	}
	return nil
}
