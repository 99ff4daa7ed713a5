package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/leonardotrapani/hyprlingo/internal/bus"
	"github.com/leonardotrapani/hyprlingo/internal/config"
	"github.com/leonardotrapani/hyprlingo/internal/daemon"
	"github.com/leonardotrapani/hyprlingo/internal/logging"
	"github.com/leonardotrapani/hyprlingo/internal/provider"
	"github.com/leonardotrapani/hyprlingo/internal/store"
	"github.com/leonardotrapani/hyprlingo/internal/tui"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	configPath string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:          "hyprlingo",
	Short:        "Live speech translation server",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadEnv(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/hyprlingo/config.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with provider API keys (default .env next to the config file)")
	rootCmd.AddCommand(
		serveCmd(),
		statusCmd(),
		versionCmd(),
		stopCmd(),
		configureCmd(),
		sessionsCmd(),
		modelsCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the translation server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			mgr, err := config.NewManager(configPath, log)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return daemon.New(mgr, log, version).Run()
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdStatus)
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show client and server version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("client version=%s proto=%s\n", version, bus.ProtoVer)
			resp, err := bus.SendCommand(bus.CmdVersion)
			if err != nil {
				fmt.Println(tui.StyleMuted.Render("server not running"))
				return nil
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdStop)
			if err != nil {
				return fmt.Errorf("failed to stop server: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func configureCmd() *cobra.Command {
	var onboarding bool

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration wizard for hyprlingo.
This will guide you through setting up:
- Provider API keys (Deepgram, DeepL, OpenAI, Groq)
- Default session languages
- LLM polishing
- Server address and limits`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(onboarding)
		},
	}

	cmd.Flags().BoolVar(&onboarding, "onboarding", false, "Run the guided onboarding wizard")

	return cmd
}

func runConfigure(onboarding bool) error {
	cfg, _, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg, onboarding)
	if err != nil {
		return fmt.Errorf("configuration wizard error: %w", err)
	}

	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		fmt.Println(tui.StyleError.Render("Configuration validation failed: " + err.Error()))
		return err
	}

	if err := config.Save(result.Config, configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println(tui.StyleSuccess.Render("Configuration saved successfully!"))
	fmt.Println()

	if _, err := bus.SendCommand(bus.CmdStatus); err == nil {
		fmt.Println("The running server picks up session defaults for new connections.")
		fmt.Println("Restart it (hyprlingo stop && hyprlingo serve) to change providers or the listen address.")
	} else {
		fmt.Println("Start the server: hyprlingo serve")
	}
	fmt.Printf("Then connect a client to ws://%s/ws\n\n", result.Config.Server.Address)

	path, _ := config.ResolvePath(configPath)
	fmt.Printf("Config file location: %s\n", path)
	return nil
}

func sessionsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.SQLite) error {
				sessions, err := st.ListSessions(ctx, limit)
				if err != nil {
					return err
				}
				if len(sessions) == 0 {
					fmt.Println(tui.StyleMuted.Render("no sessions"))
					return nil
				}
				fmt.Println(tui.StyleHeader.Render(fmt.Sprintf("%d sessions", len(sessions))))
				for _, s := range sessions {
					fmt.Println(formatSessionRow(s))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of sessions to show")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.SQLite) error {
				sess, segments, err := st.GetSessionWithSegments(ctx, args[0])
				if errors.Is(err, store.ErrSessionNotFound) {
					return fmt.Errorf("session %s not found", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Println(tui.StyleHeader.Render(formatSessionRow(sess)))
				for _, seg := range segments {
					fmt.Println(formatSegment(seg))
				}
				return nil
			})
		},
	})

	return cmd
}

func withStore(ctx context.Context, fn func(context.Context, *store.SQLite) error) error {
	cfg, _, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(ctx, cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, st)
}

func formatSessionRow(s store.Session) string {
	langs := fmt.Sprintf("%s -> %s", s.InputLanguage, s.OutputLanguage)
	if s.Mode == store.ModeTwoWay {
		langs = fmt.Sprintf("%s <-> %s", s.LanguageA, s.LanguageB)
	}
	duration := "live"
	if s.Duration != nil {
		duration = (time.Duration(*s.Duration * float64(time.Second))).Round(time.Second).String()
	}
	return fmt.Sprintf("%s  %s  %-9s %-10s %3d segments  %s  polish=%s",
		s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04"), duration, langs,
		s.SegmentCount, s.Origin, s.PolishingStatus)
}

func formatSegment(seg store.Segment) string {
	marker := " "
	if seg.PolishedTranslation != nil {
		marker = "*"
	}
	lang := seg.DetectedLanguage
	if lang == "" {
		lang = "--"
	}
	return fmt.Sprintf("[%7.2f] %s %s\n          %s %s",
		seg.Start, lang, seg.OriginalText, marker, seg.DisplayText())
}

func modelsCmd() *cobra.Command {
	var typeFilter string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List supported providers and models",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := renderModelList(typeFilter)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&typeFilter, "type", "", "filter by type: transcription, translation, llm")
	return cmd
}

func renderModelList(typeFilter string) (string, error) {
	var filterType *provider.ModelType
	if typeFilter != "" {
		var t provider.ModelType
		switch strings.ToLower(typeFilter) {
		case "transcription":
			t = provider.Transcription
		case "translation":
			t = provider.Translation
		case "llm":
			t = provider.LLM
		default:
			return "", fmt.Errorf("invalid type: %s (use transcription, translation or llm)", typeFilter)
		}
		filterType = &t
	}

	var b strings.Builder
	for _, name := range provider.ListProviders() {
		p := provider.GetProvider(name)
		models := p.Models()
		if filterType != nil {
			models = provider.ModelsOfType(p, *filterType)
		}
		if len(models) == 0 {
			continue
		}

		fmt.Fprintf(&b, "\n%s:\n", name)
		for _, m := range models {
			var parts []string
			parts = append(parts, m.Type.String())
			if m.SupportsStreaming {
				parts = append(parts, "streaming")
			}
			if m.CodeSwitching {
				parts = append(parts, "two-way")
			}
			line := "  " + m.ID
			if m.Description != "" {
				line += " - " + m.Description
			}
			fmt.Fprintf(&b, "%s [%s]\n", line, strings.Join(parts, ", "))
		}
	}
	b.WriteString("\n")
	return b.String(), nil
}
