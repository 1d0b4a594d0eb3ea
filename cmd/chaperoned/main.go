package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "chaperoned",
		Usage:   "community moderation daemon (keeps an eye on the room)",
		Version: versioninfo.Short(),
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for persistent case, ledger, and term-set state; in-memory stores are used when empty",
			EnvVars: []string{"CHAPERONED_REDIS_URL", "REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "database for the infraction history; disabled when empty",
			Value:   "sqlite://data/chaperoned/chaperone.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "sets-file-json",
			Usage:   "file path of JSON file containing curated term sets",
			EnvVars: []string{"CHAPERONED_SETS_FILE_JSON"},
		},
		&cli.StringFlag{
			Name:    "term-set-name",
			Usage:   "which named term set drives the lexicon detector",
			Value:   "flagged-terms",
			EnvVars: []string{"CHAPERONED_TERM_SET_NAME"},
		},
		&cli.StringFlag{
			Name:    "toxicity-api-key",
			Usage:   "API key for the comment-analysis scoring service; detector disabled when empty",
			EnvVars: []string{"CHAPERONED_TOXICITY_API_KEY", "PERSPECTIVE_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "llm-api-key",
			Usage:   "API key for the chat-completions classifier; detector disabled when empty",
			EnvVars: []string{"CHAPERONED_LLM_API_KEY", "OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "llm-model",
			Usage:   "model name for the chat-completions classifier",
			EnvVars: []string{"CHAPERONED_LLM_MODEL"},
		},
		&cli.Float64Flag{
			Name:    "auto-report-threshold",
			Usage:   "classifier confidence required before the automated scanner opens a case",
			Value:   0.8,
			EnvVars: []string{"CHAPERONED_AUTO_REPORT_THRESHOLD"},
		},
		&cli.StringFlag{
			Name:    "session-mode",
			Usage:   "report interview mode: static or assisted",
			Value:   "static",
			EnvVars: []string{"CHAPERONED_SESSION_MODE"},
		},
		&cli.BoolFlag{
			Name:    "ask-immediate-threat",
			Usage:   "open the report interview with an immediate-danger check",
			EnvVars: []string{"CHAPERONED_ASK_IMMEDIATE_THREAT"},
		},
		&cli.BoolFlag{
			Name:    "collect-free-text",
			Usage:   "offer an optional free-text context step in the report interview",
			Value:   true,
			EnvVars: []string{"CHAPERONED_COLLECT_FREE_TEXT"},
		},
		&cli.BoolFlag{
			Name:    "count-false-report-on-dismissal",
			Usage:   "count a false report against the reporter when an escalated case is dismissed",
			Value:   true,
			EnvVars: []string{"CHAPERONED_COUNT_FALSE_REPORT"},
		},
		&cli.StringFlag{
			Name:    "mod-channel-name",
			Usage:   "name of the moderator channel, used to recognize moderator replies",
			Value:   "mod",
			EnvVars: []string{"CHAPERONED_MOD_CHANNEL_NAME"},
		},
		&cli.StringFlag{
			Name:    "escalation-channel-name",
			Usage:   "name of the senior-review channel",
			Value:   "escalation",
			EnvVars: []string{"CHAPERONED_ESCALATION_CHANNEL_NAME"},
		},
		&cli.StringSliceFlag{
			Name:    "mod-channel",
			Usage:   "moderator channel mapping, as guildID:channelID (repeatable)",
			EnvVars: []string{"CHAPERONED_MOD_CHANNELS"},
		},
		&cli.StringSliceFlag{
			Name:    "escalation-channel",
			Usage:   "senior-review channel mapping, as guildID:channelID (repeatable)",
			EnvVars: []string{"CHAPERONED_ESCALATION_CHANNELS"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3989",
			EnvVars: []string{"CHAPERONED_METRICS_LISTEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		modChannels, err := parseChannelMappings(cctx.StringSlice("mod-channel"))
		if err != nil {
			return fmt.Errorf("parsing mod-channel flag: %w", err)
		}
		escalationChannels, err := parseChannelMappings(cctx.StringSlice("escalation-channel"))
		if err != nil {
			return fmt.Errorf("parsing escalation-channel flag: %w", err)
		}

		srv, err := NewServer(Config{
			Logger:                      logger,
			RedisURL:                    cctx.String("redis-url"),
			DatabaseURL:                 cctx.String("database-url"),
			SetsFileJSON:                cctx.String("sets-file-json"),
			TermSetName:                 cctx.String("term-set-name"),
			ToxicityAPIKey:              cctx.String("toxicity-api-key"),
			LLMAPIKey:                   cctx.String("llm-api-key"),
			LLMModel:                    cctx.String("llm-model"),
			AutoReportThreshold:         cctx.Float64("auto-report-threshold"),
			SessionMode:                 cctx.String("session-mode"),
			AskImmediateThreat:          cctx.Bool("ask-immediate-threat"),
			CollectFreeText:             cctx.Bool("collect-free-text"),
			CountFalseReportOnDismissal: cctx.Bool("count-false-report-on-dismissal"),
			ModChannelName:              cctx.String("mod-channel-name"),
			EscalationChannelName:       cctx.String("escalation-channel-name"),
			ModChannels:                 modChannels,
			EscalationChannels:          escalationChannels,
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run moderation service: %w", err)
		}
		return nil
	},
}

func parseChannelMappings(vals []string) (map[string]string, error) {
	out := make(map[string]string, len(vals))
	for _, v := range vals {
		guild, channel, ok := strings.Cut(v, ":")
		if !ok || guild == "" || channel == "" {
			return nil, fmt.Errorf("expected guildID:channelID, got %q", v)
		}
		out[guild] = channel
	}
	return out, nil
}
