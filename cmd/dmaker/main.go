package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dmaker/internal/app"
	"dmaker/internal/config"
	"dmaker/internal/db"
	"dmaker/internal/domain"
	"dmaker/internal/engine"
	"dmaker/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "dmaker",
	Short: "DMaker CLI",
	Long: `DMaker manages developer employment records.
Developers are created with a level/experience consistency check, can be
edited, and are retired (soft-deleted) into an append-only snapshot store.
Every change is journaled; view it with 'dmaker log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("DMAKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier for the journal")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(developerCmd())
	rootCmd.AddCommand(retiredCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(serveCmd())
}

func developerCmd() *cobra.Command {
	dev := &cobra.Command{Use: "developer", Short: "Manage developer records"}
	dev.AddCommand(developerListCmd())
	dev.AddCommand(developerShowCmd())
	dev.AddCommand(developerCreateCmd())
	dev.AddCommand(developerEditCmd())
	dev.AddCommand(developerRetireCmd())
	return dev
}

func developerListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List employed developers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.GetAllEmployedDevelopers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				return printDeveloperTable(items)
			})
		},
	}
	return cmd
}

func developerShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <member-id>",
		Short: "Show a developer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.GetDeveloperDetail(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
	return cmd
}

func developerCreateCmd() *cobra.Command {
	var memberID, name, level, skill string
	var age, years int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a developer record",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.CreateDeveloper(ctx, engine.CreateDeveloperOptions{
					MemberID:        memberID,
					Name:            name,
					Age:             age,
					Level:           domain.DeveloperLevel(level),
					SkillType:       domain.DeveloperSkillType(skill),
					ExperienceYears: years,
					ActorID:         viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
	cmd.Flags().StringVar(&memberID, "member-id", "", "member id")
	cmd.Flags().StringVar(&name, "name", "", "name")
	cmd.Flags().IntVar(&age, "age", 0, "age")
	cmd.Flags().StringVar(&level, "level", "", "level (JUNIOR, JUNGNIOR, SENIOR)")
	cmd.Flags().StringVar(&skill, "skill", "", "skill type (FRONT_END, BACK_END, FULL_STACK)")
	cmd.Flags().IntVar(&years, "experience-years", 0, "experience years")
	_ = cmd.MarkFlagRequired("member-id")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("level")
	_ = cmd.MarkFlagRequired("skill")
	return cmd
}

func developerEditCmd() *cobra.Command {
	var level, skill string
	var years int
	cmd := &cobra.Command{
		Use:   "edit <member-id>",
		Short: "Edit level, skill type, and experience years",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.EditDeveloper(ctx, args[0], engine.EditDeveloperOptions{
					Level:           domain.DeveloperLevel(level),
					SkillType:       domain.DeveloperSkillType(skill),
					ExperienceYears: years,
					ActorID:         viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "level (JUNIOR, JUNGNIOR, SENIOR)")
	cmd.Flags().StringVar(&skill, "skill", "", "skill type (FRONT_END, BACK_END, FULL_STACK)")
	cmd.Flags().IntVar(&years, "experience-years", 0, "experience years")
	_ = cmd.MarkFlagRequired("level")
	_ = cmd.MarkFlagRequired("skill")
	return cmd
}

func developerRetireCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retire <member-id>",
		Short: "Retire a developer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.RetireDeveloper(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
	return cmd
}

func retiredCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retired",
		Short: "List retirement snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListRetiredDevelopers(ctx)
				if err != nil {
					return err
				}
				return printJSON(items)
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Inspect the event journal"}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, memberID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, evtType, memberID)
				if err != nil {
					return err
				}
				return printJSON(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&memberID, "member-id", "", "member id filter")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, err := app.Open(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return conn.Close()
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("base-path") {
				cfg.Server.BasePath = basePath
			}
			conn, e, err := app.Open(workspace)
			if err != nil {
				return err
			}
			defer conn.Close()
			authCfg := server.AuthConfig{
				JWTSecret:              cfg.Auth.JWTSecret,
				AllowLegacyActorHeader: cfg.Auth.AllowLegacyActorHeader,
			}
			if s := os.Getenv("DMAKER_JWT_SECRET"); s != "" {
				authCfg.JWTSecret = s
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: cfg.Server.BasePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving DMaker API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", cfg.Server.Addr, cfg.Server.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	conn, e, err := app.Open(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, e)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDeveloperTable(items []domain.Developer) error {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"MEMBER ID", "NAME", "LEVEL", "SKILL", "YEARS", "STATUS"})
	for _, d := range items {
		t.AppendRow(table.Row{d.MemberID, d.Name, d.Level, d.SkillType, d.ExperienceYears, d.StatusCode})
	}
	t.Render()
	return nil
}
