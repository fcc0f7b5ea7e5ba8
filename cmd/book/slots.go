package main

import (
	"context"
	"fmt"

	"stylo/apiclient"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (o *RootOptions) client() *apiclient.Client {
	logger := zap.NewNop()
	if o.Verbose {
		logger, _ = zap.NewDevelopment()
	}
	c := apiclient.New(o.APIURL, logger)
	c.HTTPClient.Timeout = o.Timeout
	return c
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type slotsOptions struct {
	*RootOptions
	ServiceID string
	StaffID   string
	Date      string
}

func newSlotsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &slotsOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List the free slots of a service on one date",
		Example: `  book slots --branch branch-miraflores --service svc-corte --date 2024-06-10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().Availability(cmd.Context(), opts.BranchID, opts.ServiceID, optional(opts.StaffID), opts.Date)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s on %s: %d slots\n", resp.Service.Name, resp.Date, resp.AvailableCount)
			for _, s := range resp.Slots {
				fmt.Fprintf(out, "  %s  %s (%s)\n", s.Datetime, s.StaffName, s.StaffID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.ServiceID, "service", "", "service id")
	cmd.Flags().StringVar(&opts.StaffID, "staff", "", "staff id (empty for any)")
	cmd.Flags().StringVar(&opts.Date, "date", "", "date as YYYY-MM-DD")
	cmd.MarkFlagRequired("service")
	cmd.MarkFlagRequired("date")
	return cmd
}

type monthOptions struct {
	*RootOptions
	ServiceID string
	StaffID   string
	Month     string
}

func newMonthCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &monthOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "month",
		Short: "Show which days of a month have free slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printMonth(cmd.Context(), opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.ServiceID, "service", "", "service id")
	cmd.Flags().StringVar(&opts.StaffID, "staff", "", "staff id (empty for any)")
	cmd.Flags().StringVar(&opts.Month, "month", "", "month as YYYY-MM")
	cmd.MarkFlagRequired("service")
	cmd.MarkFlagRequired("month")
	return cmd
}

func printMonth(ctx context.Context, opts *monthOptions, cmd *cobra.Command) error {
	resp, err := opts.client().MonthAvailability(ctx, opts.BranchID, opts.ServiceID, optional(opts.StaffID), opts.Month)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, d := range resp.Days {
		mark := "-"
		if d.Available {
			mark = fmt.Sprintf("%d", d.SlotsCount)
		}
		fmt.Fprintf(out, "%s  %s\n", d.Date, mark)
	}
	return nil
}
