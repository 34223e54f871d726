package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/mentat/internal/cli"
	"github.com/Veraticus/mentat/internal/report"
)

func overviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show a descriptive snapshot of the dataset",
		RunE:  runOverview,
	}
}

func runOverview(cmd *cobra.Command, _ []string) error {
	batch, sessionID, err := loadSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}

	o, err := report.Build(batch)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle("Dataset Overview (session " + sessionID + ")"))
	fmt.Print(cli.RenderKeyValues([][2]string{
		{"Total revenue", fmt.Sprintf("%.2f", o.TotalRevenue)},
		{"Orders", strconv.Itoa(o.TotalOrders)},
		{"Customers", strconv.Itoa(o.TotalCustomers)},
		{"Products", strconv.Itoa(o.TotalProducts)},
		{"Avg order value", fmt.Sprintf("%.2f", o.AvgOrderValue)},
	}))
	fmt.Println()

	productRows := make([][]string, 0, len(o.TopProducts))
	for _, p := range o.TopProducts {
		productRows = append(productRows, []string{p.StockCode, p.Description, strconv.Itoa(p.Quantity)})
	}
	fmt.Println(cli.BoldStyle.Render("Top products by volume"))
	fmt.Print(cli.RenderTable([]string{"Code", "Description", "Units"}, productRows))
	fmt.Println()

	customerRows := make([][]string, 0, len(o.TopCustomers))
	for _, c := range o.TopCustomers {
		customerRows = append(customerRows, []string{c.CustomerID, fmt.Sprintf("%.2f", c.Revenue)})
	}
	fmt.Println(cli.BoldStyle.Render("Top customers by revenue"))
	fmt.Print(cli.RenderTable([]string{"Customer", "Revenue"}, customerRows))
	fmt.Println()

	monthRows := make([][]string, 0, len(o.MonthlyRevenue))
	for _, m := range o.MonthlyRevenue {
		monthRows = append(monthRows, []string{m.Month.Format("2006-01"), fmt.Sprintf("%.2f", m.Revenue)})
	}
	fmt.Println(cli.BoldStyle.Render("Monthly revenue"))
	fmt.Print(cli.RenderTable([]string{"Month", "Revenue"}, monthRows))
	fmt.Println()

	countryRows := make([][]string, 0, len(o.RevenueByCountry))
	for _, c := range o.RevenueByCountry {
		countryRows = append(countryRows, []string{c.Country, fmt.Sprintf("%.2f", c.Revenue)})
	}
	fmt.Println(cli.BoldStyle.Render("Revenue by country"))
	fmt.Print(cli.RenderTable([]string{"Country", "Revenue"}, countryRows))

	if len(o.Insights) > 0 {
		fmt.Println()
		for _, insight := range o.Insights {
			fmt.Println(cli.FormatInfo(insight))
		}
	}
	return nil
}
