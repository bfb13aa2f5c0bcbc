package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/bootstrap"
	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/kpi"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/service"
)

// cliActor is recorded as the author of maintenance writes.
var cliActor = domain.Actor{Name: "ticketctl", Email: "ticketctl@localhost", Role: domain.RoleAdmin}

type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	stores *bootstrap.Stores
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	stores, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, stores: stores}, nil
}

func (r *runtime) close() {
	r.stores.Close()
	_ = r.logger.Sync()
}

func newMigrateCommentsCommand() *cobra.Command {
	var ticketID string
	cmd := &cobra.Command{
		Use:   "migrate-comments",
		Short: "Move legacy response lists into the unified comment trail",
		Long:  `Rewrites tickets that only carry adminResponses/customerResponses so their trail lives in comments. lastUpdated is left untouched. Without --ticket every legacy ticket is migrated.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			comments := service.NewCommentService(service.CommentDependencies{
				TicketRepo: rt.stores.Tickets,
				Dispatcher: events.NewInMemoryDispatcher(rt.logger),
				Logger:     rt.logger,
			})
			if ticketID != "" {
				migrated, err := comments.MigrateLegacyComments(ctx, cliActor, ticketID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ticket %s migrated: %t\n", ticketID, migrated)
				return nil
			}
			count, err := comments.MigrateAllLegacyComments(ctx, cliActor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d tickets\n", count)
			return nil
		},
	}
	cmd.Flags().StringVar(&ticketID, "ticket", "", "Migrate a single ticket by id")
	return cmd
}

func newKPICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kpi",
		Short: "SLA/KPI reports",
	}
	cmd.AddCommand(newKPIExportCommand())
	return cmd
}

func newKPIExportCommand() *cobra.Command {
	var (
		period   string
		n        int
		assignee string
		out      string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a KPI report workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			query := service.KPIQuery{Period: kpi.PeriodQuery{Period: kpi.Period(period), N: n}}
			if assignee != "" {
				query.AssigneeEmail = &assignee
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			defer f.Close()

			svc := service.NewKPIService(service.KPIDependencies{TicketRepo: rt.stores.Tickets, Logger: rt.logger})
			if err := svc.Export(ctx, cliActor, query, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", string(kpi.PeriodThisMonth), "this_week, this_month, last_n_weeks, last_n_months or all")
	cmd.Flags().IntVarP(&n, "n", "n", 1, "Window size for the last_n periods")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Only tickets assigned to this email")
	cmd.Flags().StringVarP(&out, "out", "o", "kpi.xlsx", "Output file")
	return cmd
}

func newSequenceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Ticket-number counters",
	}
	cmd.AddCommand(newNextNumberCommand())
	return cmd
}

func newNextNumberCommand() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "next-number",
		Short: "Draw the next ticket number for a category",
		Long:  `Draws and prints the next number. The number is consumed; use it to verify counters after a restore.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			generator := service.NewSequenceGenerator(service.SequenceDependencies{
				CounterRepo:  rt.stores.Counters,
				MaxRetries:   rt.cfg.Sequence.MaxRetries,
				RetryBackoff: rt.cfg.Sequence.RetryBackoff(),
				Logger:       rt.logger,
			})
			number, err := generator.NextTicketNumber(ctx, domain.TicketCategory(category))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), number)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", string(domain.CategoryIncident), "Ticket category")
	return cmd
}

func newRosterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Responder directory",
	}
	cmd.AddCommand(newRosterAddCommand())
	return cmd
}

func newRosterAddCommand() *cobra.Command {
	var name, email, role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or replace a responder",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			ctx := cmd.Context()
			rt, err := openRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.stores.Roster.Put(ctx, domain.Assignee{Name: name, Email: email, Role: role}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "responder %s saved\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleEmployee), "Role")
	return cmd
}

func newTokenCommand() *cobra.Command {
	var (
		name, email, role string
		ttl               time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			actor := domain.Actor{Name: name, Email: email, Role: domain.Role(role)}
			if email == "" || !actor.Role.IsValid() {
				return fmt.Errorf("--email and a valid --role are required")
			}
			token, expires, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer).GenerateToken(actor, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleEmployee), "admin, client, client_head, employee or project_manager")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	return cmd
}
