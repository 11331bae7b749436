package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/geoestate/internal/models"
	"github.com/magabrotheeeer/geoestate/internal/services/subscription"
	"github.com/magabrotheeeer/geoestate/internal/storage/repository"
)

// PlanStore операции с каталогом тарифов.
type PlanStore interface {
	ListPlans(ctx context.Context) ([]*models.Plan, error)
	UpsertPlan(ctx context.Context, p models.Plan) (int64, error)
	SetPlanPrice(ctx context.Context, name models.PlanName, price decimal.Decimal) error
}

// Invalidator сбрасывает ключ кэша.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) error
}

var defaultPlans = []models.Plan{
	{Name: models.PlanBasic, Price: decimal.RequireFromString("10.00"), DurationDays: 30, Features: "Residential listings"},
	{Name: models.PlanPremium, Price: decimal.RequireFromString("20.00"), DurationDays: 30, Features: "All listings except industrial"},
	{Name: models.PlanEnterprise, Price: decimal.RequireFromString("50.00"), DurationDays: 30, Features: "Full catalog"},
}

func seedPlans(ctx context.Context, store PlanStore, inv Invalidator, out io.Writer) error {
	for _, p := range defaultPlans {
		id, err := store.UpsertPlan(ctx, p)
		if err != nil {
			return fmt.Errorf("seed %s: %w", p.Name, err)
		}
		fmt.Fprintf(out, "%-10s id=%d price=%s days=%d\n", p.Name, id, p.Price.StringFixed(2), p.DurationDays)
	}
	return invalidatePlans(ctx, inv, out)
}

func listPlans(ctx context.Context, store PlanStore, out io.Writer) error {
	plans, err := store.ListPlans(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tDAYS\tFEATURES")
	for _, p := range plans {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", p.ID, p.Name, p.Price.StringFixed(2), p.DurationDays, p.Features)
	}
	return w.Flush()
}

func setPlanPrice(ctx context.Context, store PlanStore, inv Invalidator, out io.Writer, name, price string) error {
	planName := models.PlanName(name)
	if !planName.Valid() {
		return fmt.Errorf("unknown plan %q: expected Basic, Premium or Enterprise", name)
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", price, err)
	}
	if p.IsNegative() {
		return fmt.Errorf("price must not be negative")
	}

	if err := store.SetPlanPrice(ctx, planName, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("plan %s is not seeded yet, run `geoestatectl plans seed`", planName)
		}
		return err
	}
	fmt.Fprintf(out, "%s price set to %s\n", planName, p.StringFixed(2))
	return invalidatePlans(ctx, inv, out)
}

func invalidatePlans(ctx context.Context, inv Invalidator, out io.Writer) error {
	if inv == nil {
		return nil
	}
	if err := inv.Invalidate(ctx, subscription.PlansCacheKey); err != nil {
		return fmt.Errorf("invalidate plan cache: %w", err)
	}
	fmt.Fprintln(out, "plan cache invalidated")
	return nil
}

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Manage the plan catalog",
}

var plansSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create or reset Basic, Premium and Enterprise plans",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openStorage()
		if err != nil {
			return err
		}
		defer db.Close()

		var inv Invalidator
		if c := openCache(cmd, cfg); c != nil {
			defer c.Close()
			inv = c
		}
		return seedPlans(cmd.Context(), db, inv, cmd.OutOrStdout())
	},
}

var plansListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the plan catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openStorage()
		if err != nil {
			return err
		}
		defer db.Close()
		return listPlans(cmd.Context(), db, cmd.OutOrStdout())
	},
}

var plansSetPriceCmd = &cobra.Command{
	Use:     "set-price <name> <price>",
	Short:   "Change the price of a plan",
	Example: `  geoestatectl plans set-price Premium 25.00`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openStorage()
		if err != nil {
			return err
		}
		defer db.Close()

		var inv Invalidator
		if c := openCache(cmd, cfg); c != nil {
			defer c.Close()
			inv = c
		}
		return setPlanPrice(cmd.Context(), db, inv, cmd.OutOrStdout(), args[0], args[1])
	},
}

func init() {
	plansCmd.AddCommand(plansSeedCmd, plansListCmd, plansSetPriceCmd)
}
