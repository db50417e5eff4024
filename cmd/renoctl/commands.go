package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"renoquote/internal/app"
	"renoquote/internal/auth"
	"renoquote/internal/config"
	"renoquote/internal/estimation"
	"renoquote/internal/inspiration"
	"renoquote/internal/leads"
	"renoquote/internal/llm"
	"renoquote/internal/renovation"
	"renoquote/internal/server"
)

// NewRoot builds the renoctl command tree.
func NewRoot() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "renoctl",
		Short:         "Renovation quote tooling: estimates, inspiration, leads and the API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "optional YAML or JSON config file")

	load := func() (config.Config, error) { return config.Load(configPath) }
	root.AddCommand(
		estimateCmd(load),
		inspirationCmd(load),
		enrichCmd(load),
		serveCmd(load),
		hashKeyCmd(),
	)
	return root
}

type loader func() (config.Config, error)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func estimateCmd(load loader) *cobra.Command {
	var (
		rooms   []string
		style   string
		year    int
		offline bool
	)
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate renovation costs for a room selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			selected := make([]renovation.Room, 0, len(rooms))
			for _, r := range rooms {
				selected = append(selected, renovation.Room(r))
			}
			normalized, st, err := renovation.ValidateSelection(selected, renovation.Style(style))
			if err != nil {
				return err
			}
			req := renovation.EstimateRequest{Rooms: normalized, Style: st}
			if year > 0 {
				req.House = &renovation.HouseInfo{ConstructionYear: year}
			}

			var text llm.Client
			if !offline {
				text = textClient(cfg)
			}
			est := estimation.New(text,
				estimation.WithRetryPolicy(app.Policy(cfg.Retry)),
				estimation.WithGeneration(cfg.AI.Temperature, cfg.AI.MaxTokens),
			)
			res := est.Estimate(cmd.Context(), req)
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"estimation": res.Estimate,
				"source":     res.Source,
				"fallback":   res.Fallback,
			})
		},
	}
	cmd.Flags().StringSliceVar(&rooms, "rooms", nil, "comma separated room tags (cuisine,salle-de-bain,...)")
	cmd.Flags().StringVar(&style, "style", "", "style tag (moderne, scandinave, ...)")
	cmd.Flags().IntVar(&year, "year", 0, "construction year of the house")
	cmd.Flags().BoolVar(&offline, "offline", false, "use the regional table without calling a provider")
	return cmd
}

func textClient(cfg config.Config) llm.Client {
	var (
		openai *llm.OpenAIClient
		gemini *llm.GeminiClient
	)
	if cfg.AI.OpenAI.APIKey != "" {
		openai = llm.NewOpenAIClient(cfg.AI.OpenAI.APIKey, cfg.AI.OpenAI.Model)
	}
	if cfg.AI.Gemini.APIKey != "" {
		gemini = llm.NewGeminiClient(cfg.AI.Gemini.APIKey, cfg.AI.Gemini.TextModel, cfg.Retry.Timeout(), nil)
	}
	return app.TextClient(cfg.AI.TextProvider, openai, gemini)
}

func inspirationCmd(load loader) *cobra.Command {
	var (
		room    string
		style   string
		count   int
		offline bool
	)
	cmd := &cobra.Command{
		Use:   "inspiration",
		Short: "List inspiration photos for a room and style",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(room) == "" || strings.TrimSpace(style) == "" {
				return errors.New("--room and --style are required")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			key := cfg.Pexels.APIKey
			if offline {
				key = ""
			}
			r, _ := renovation.ParseRoom(room)
			s, ok := renovation.ParseStyle(style)
			if !ok {
				s = renovation.Style(strings.ToLower(style))
			}
			res := inspiration.New(key, app.Policy(cfg.Retry)).Find(cmd.Context(), r, s, count)
			return printJSON(cmd.OutOrStdout(), map[string]any{"inspirations": res.Photos, "meta": res.Meta})
		},
	}
	cmd.Flags().StringVar(&room, "room", "", "room tag")
	cmd.Flags().StringVar(&style, "style", "", "style tag")
	cmd.Flags().IntVar(&count, "count", inspiration.DefaultCount, "number of photos")
	cmd.Flags().BoolVar(&offline, "offline", false, "use the seeded fallback without calling Pexels")
	return cmd
}

func enrichCmd(load loader) *cobra.Command {
	var (
		file    string
		deliver bool
	)
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Score a lead file; with --deliver, send it to the configured sink",
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open lead: %w", err)
				}
				defer f.Close()
				in = f
			}
			var lead leads.Lead
			if err := json.NewDecoder(in).Decode(&lead); err != nil {
				return fmt.Errorf("decode lead: %w", err)
			}

			if !deliver {
				enriched, err := leads.Enrich(lead, time.Now().UTC())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), enriched)
			}

			cfg, err := load()
			if err != nil {
				return err
			}
			sink, closeSink, err := leads.NewSink(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeSink()
			enriched, err := leads.NewService(sink).Submit(cmd.Context(), lead)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), enriched)
		},
	}
	cmd.Flags().StringVar(&file, "file", "-", "lead JSON file, - for stdin")
	cmd.Flags().BoolVar(&deliver, "deliver", false, "deliver to the webhook, database or memory sink")
	return cmd
}

func serveCmd(load loader) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			services, err := app.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer services.Close()

			srv := server.New(cfg.Port, services.Handler, services.Options)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				log.Info().Msg("shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides APP_PORT)")
	return cmd
}

func hashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key <key>",
		Short: "Print the bcrypt hash to use as DIAGNOSTICS_KEY_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashKey(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}
