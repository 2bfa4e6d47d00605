package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"airrag/internal/domain"
	"airrag/internal/service"
	"airrag/internal/tui"
)

func newChatCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [files...]",
		Short: "Interactive chat console",
		Long:  "Opens the chat console. Files given as arguments are indexed first; more can be added with /wgraj <plik>.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := setup(flags, true)
			if err != nil {
				return err
			}
			defer done()

			summary := ""
			if len(args) > 0 {
				res, err := a.ingest.IngestFiles(cmd.Context(), args)
				if err != nil {
					return fmt.Errorf("ingest failed: %w", err)
				}
				summary = res.Summary
			}
			timeout := time.Duration(a.cfg.LLM.TimeoutSecs) * time.Second * 2
			m := tui.New(a.router, a.ingest, summary, timeout)
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, done, err := setup(flags, false)
			if err != nil {
				return err
			}
			defer done()
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go warmStations(ctx, a)
			return a.server().ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// warmStations fills the station cache in the background so the first
// local-data query can be answered from it.
func warmStations(ctx context.Context, a *app) {
	if _, err := a.projects.RefreshProjectAirQuality(ctx, a.stations); err != nil {
		a.log.Warn("initial station refresh failed", zap.Error(err))
	}
}

func newIngestCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ingest <files...>",
		Short: "Index documents and print their topics, metrics and summary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := setup(flags, false)
			if err != nil {
				return err
			}
			defer done()
			res, err := a.ingest.IngestFiles(cmd.Context(), args)
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}
			if asJSON {
				return printJSON(cmd, res)
			}
			printResult(cmd, res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newAskCmd(flags *rootFlags) *cobra.Command {
	var (
		docs   []string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Answer a single query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := setup(flags, false)
			if err != nil {
				return err
			}
			defer done()
			if len(docs) > 0 {
				if _, err := a.ingest.IngestFiles(cmd.Context(), docs); err != nil {
					return fmt.Errorf("ingest failed: %w", err)
				}
			}
			resp := a.router.Process(cmd.Context(), strings.Join(args, " "))
			if asJSON {
				return printJSON(cmd, resp)
			}
			cmd.Println(resp.Text)
			for _, v := range resp.Visualizations {
				cmd.Printf("[%s] %s\n", v.Type, v.Title)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&docs, "doc", "d", nil, "documents to index before answering")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newStationsCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stations",
		Short: "Fetch and list Trójmiasto air-quality stations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, done, err := setup(flags, false)
			if err != nil {
				return err
			}
			defer done()
			stations, err := a.projects.RefreshStations(cmd.Context(), a.stations)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, stations)
			}
			printStations(cmd, stations)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printResult(cmd *cobra.Command, res service.Result) {
	cmd.Println(res.Message)
	if len(res.Topics) > 0 {
		cmd.Println()
		cmd.Println("Tematy:")
		for _, t := range res.Topics {
			cmd.Printf("  - %s\n", t)
		}
	}
	if len(res.Metrics) > 0 {
		cmd.Println()
		cmd.Println("Metryki:")
		for k, v := range res.Metrics {
			cmd.Printf("  %s: %v\n", k, v)
		}
	}
	if res.Summary != "" {
		cmd.Println()
		cmd.Println("Podsumowanie:")
		cmd.Println(res.Summary)
	}
}

func printStations(cmd *cobra.Command, stations []domain.StationRecord) {
	if len(stations) == 0 {
		cmd.Println("Brak stacji.")
		return
	}
	for _, st := range stations {
		ms := st.Measurements
		cmd.Printf("%-12s %-32s AQI %4.0f  PM2.5 %5.1f  PM10 %5.1f  %s\n",
			st.ID, st.StationName, ms.AQI, ms.PM25, ms.PM10, ms.Source)
	}
}
