package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/PancyStudios/PancyDash/internal/premium"
	"github.com/PancyStudios/PancyDash/pkg/models"
	"github.com/spf13/cobra"
)

var (
	grantType     string
	grantUsername string
)

func newPremiumCmd() *cobra.Command {
	premiumCmd := &cobra.Command{
		Use:   "premium",
		Short: "Inspect and change premium subscriptions",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List active premium users, newest first",
		Args:  cobra.NoArgs,
		RunE:  runPremiumList,
	}
	grantCmd := &cobra.Command{
		Use:   "grant <userId>",
		Short: "Grant premium and bring back commands a revoke switched off",
		Args:  cobra.ExactArgs(1),
		RunE:  runPremiumGrant,
	}
	grantCmd.Flags().StringVar(&grantType, "type", string(models.SubscriptionPermanent), "Subscription type (permanent|monthly)")
	grantCmd.Flags().StringVar(&grantUsername, "username", "", "Username stored on the record")

	revokeCmd := &cobra.Command{
		Use:   "revoke <userId>",
		Short: "Revoke premium and deactivate the user's commands",
		Args:  cobra.ExactArgs(1),
		RunE:  runPremiumRevoke,
	}
	renewCmd := &cobra.Command{
		Use:   "renew <userId>",
		Short: "Extend a subscription a full period from now",
		Args:  cobra.ExactArgs(1),
		RunE:  runPremiumRenew,
	}
	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire overdue monthly subscriptions now",
		Args:  cobra.NoArgs,
		RunE:  runPremiumSweep,
	}
	expiringCmd := &cobra.Command{
		Use:   "expiring",
		Short: "List subscriptions due for a renewal reminder",
		Args:  cobra.NoArgs,
		RunE:  runPremiumExpiring,
	}

	premiumCmd.AddCommand(listCmd, grantCmd, revokeCmd, renewCmd, sweepCmd, expiringCmd)
	return premiumCmd
}

func premiumService() *premium.Service {
	return premium.NewService(store, nil)
}

func formatTime(ts models.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Time.UTC().Format(time.RFC3339)
}

func runPremiumList(cmd *cobra.Command, args []string) error {
	users, err := premiumService().ListActive(cmd.Context())
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No active premium users.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USER ID\tUSERNAME\tTYPE\tADDED\tEXPIRES")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.UserID, u.Username, u.SubscriptionType, formatTime(u.AddedAt), formatTime(u.ExpiresAt))
	}
	return w.Flush()
}

func runPremiumGrant(cmd *cobra.Command, args []string) error {
	res, err := premiumService().Grant(cmd.Context(), actor(), premium.GrantRequest{
		UserID:           args[0],
		Username:         grantUsername,
		SubscriptionType: models.SubscriptionType(grantType),
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Granted %s premium to %s.\n", res.Record.SubscriptionType, res.Record.UserID)
	if !res.Record.ExpiresAt.IsZero() {
		fmt.Fprintf(out, "Expires: %s\n", formatTime(res.Record.ExpiresAt))
	}
	fmt.Fprintf(out, "Commands reactivated: %d\n", res.Reactivated)
	return nil
}

func runPremiumRevoke(cmd *cobra.Command, args []string) error {
	n, err := premiumService().Revoke(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Revoked premium of %s. Commands deactivated: %d\n", args[0], n)
	return nil
}

func runPremiumRenew(cmd *cobra.Command, args []string) error {
	res, err := premiumService().Renew(cmd.Context(), actor(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Renewed %s until %s. Commands reactivated: %d\n",
		args[0], res.ExpiresAt.UTC().Format(time.RFC3339), res.Reactivated)
	return nil
}

func runPremiumSweep(cmd *cobra.Command, args []string) error {
	expired, err := premiumService().SweepExpired(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Expired subscriptions: %d\n", len(expired))
	for _, e := range expired {
		fmt.Fprintf(out, "  %s (%s): %d commands deactivated\n", e.UserID, e.Username, e.Deactivated)
	}
	return nil
}

func runPremiumExpiring(cmd *cobra.Command, args []string) error {
	users, err := premiumService().ExpiringSoon(cmd.Context())
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No reminders due.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USER ID\tUSERNAME\tDAYS\tEXPIRES")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", u.UserID, u.Username, u.DaysRemaining, u.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return w.Flush()
}
