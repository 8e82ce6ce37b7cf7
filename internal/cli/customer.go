package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ogulcanaydogan/aussiebb-go/internal/output"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
	"github.com/spf13/cobra"
)

var customerCmd = &cobra.Command{
	Use:   "customer",
	Short: "Show the customer account",
	Args:  cobra.NoArgs,
	RunE:  runCustomer,
}

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List broadband services on the account",
	Args:  cobra.NoArgs,
	RunE:  runServices,
}

func init() {
	rootCmd.AddCommand(customerCmd)
	rootCmd.AddCommand(servicesCmd)
}

func runCustomer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := format()
	if err != nil {
		return err
	}

	acct, err := initAccount(cmd.Context(), cfg, newLogger(cfg), nil)
	if err != nil {
		return err
	}
	cust, err := acct.Customer(cmd.Context())
	if err != nil {
		return fmt.Errorf("get customer: %w", err)
	}

	table := output.Table{
		Header: []string{"FIELD", "VALUE"},
		Rows: [][]string{
			{"Customer", strconv.FormatInt(cust.Number, 10)},
			{"Name", cust.BillingName},
			{"Brand", cust.Brand},
			{"Postal Address", cust.PostalAddress},
			{"Phone", cust.Phone},
			{"Email", strings.Join(cust.Emails, ", ")},
			{"Payment Method", cust.PaymentMethod},
			{"Balance", fmt.Sprintf("$%.2f", cust.Balance)},
			{"Suspended", strconv.FormatBool(cust.Suspended)},
			{"Services", strconv.Itoa(len(cust.Services))},
		},
	}
	return output.Write(cmd.OutOrStdout(), f, cust, table)
}

func runServices(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := format()
	if err != nil {
		return err
	}

	acct, err := initAccount(cmd.Context(), cfg, newLogger(cfg), nil)
	if err != nil {
		return err
	}
	services, err := acct.Services(cmd.Context())
	if err != nil {
		return fmt.Errorf("list services: %w", err)
	}

	infos := make([]model.Service, 0, len(services))
	now := time.Now()
	table := output.Table{Header: []string{"ID", "PLAN", "CONNECTION", "ROLLOVER", "CURRENT PERIOD", "NEXT BILL", "ADDRESS"}}
	for _, svc := range services {
		info := svc.Info()
		infos = append(infos, info)
		start, end := model.BillingPeriodBounds(now, info.RolloverDay)
		table.Rows = append(table.Rows, []string{
			info.ID.String(),
			info.Plan,
			info.Connection.Product,
			strconv.Itoa(info.RolloverDay),
			formatDate(start) + " to " + formatDate(end.AddDate(0, 0, -1)),
			formatDate(info.NextBill),
			info.Address,
		})
	}
	return output.Write(cmd.OutOrStdout(), f, infos, table)
}
