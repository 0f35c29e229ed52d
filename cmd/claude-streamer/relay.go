package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulocesarias/slack-bots/internal/attachments"
	"github.com/paulocesarias/slack-bots/internal/claudecli"
	"github.com/paulocesarias/slack-bots/internal/logutil"
	"github.com/paulocesarias/slack-bots/internal/slackclient"
	"github.com/paulocesarias/slack-bots/internal/stream"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	processingEmoji = "hourglass_flowing_sand"
	successEmoji    = "white_check_mark"
	errorEmoji      = "x"
)

// Slack user mentions carry no meaning for the prompt.
var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

func newRelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay <channel_id> <thread_ts> <message_ts> <session_id> <message_base64> [files_base64]",
		Short: "Run one claude session and stream its output into a Slack thread",
		Args:  cobra.RangeArgs(5, 6),
		RunE: func(cmd *cobra.Command, args []string) error {
			botToken := strings.TrimSpace(viper.GetString("slack.bot_token"))
			if botToken == "" {
				return fmt.Errorf("missing slack.bot_token (set via %s_SLACK_BOT_TOKEN or SLACK_TOKEN)", envPrefix)
			}

			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			return runRelay(cmd.Context(), relayInput{
				ChannelID:    args[0],
				ThreadTS:     args[1],
				MessageTS:    args[2],
				SessionID:    args[3],
				MessageB64:   args[4],
				FilesB64:     sixthArg(args),
				SlackToken:   botToken,
				ClaudeBinary: viper.GetString("claude.bin"),
			}, logger)
		},
	}

	cmd.Flags().String("claude-bin", "", "Path to the claude executable (defaults to claude on PATH).")
	_ = viper.BindPFlag("claude.bin", cmd.Flags().Lookup("claude-bin"))

	return cmd
}

func sixthArg(args []string) string {
	if len(args) >= 6 {
		return args[5]
	}
	return ""
}

type relayInput struct {
	ChannelID    string
	ThreadTS     string
	MessageTS    string
	SessionID    string
	MessageB64   string
	FilesB64     string
	SlackToken   string
	ClaudeBinary string
}

func runRelay(ctx context.Context, in relayInput, logger *slog.Logger) error {
	rawMessage, err := base64.StdEncoding.DecodeString(strings.TrimSpace(in.MessageB64))
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	message := strings.TrimSpace(mentionPattern.ReplaceAllString(string(rawMessage), ""))

	sessionID := strings.TrimSpace(in.SessionID)
	if _, err := uuid.Parse(sessionID); err != nil {
		sessionID = uuid.NewString()
		logger.Warn("session_id_invalid", "given", in.SessionID, "minted", sessionID)
	}

	logger.Info("session_started", "channel", in.ChannelID, "session", sessionID, "message_length", len(message))

	httpClient := &http.Client{Timeout: viper.GetDuration("slack.http_timeout")}
	api := slackclient.New(httpClient, viper.GetString("slack.api_base_url"), in.SlackToken)

	reactionsEnabled := viper.GetBool("slack.reactions.enabled")
	setOutcomeReaction := func(emoji string) {
		if !reactionsEnabled {
			return
		}
		if err := api.RemoveReaction(ctx, in.ChannelID, in.MessageTS, processingEmoji); err != nil {
			logger.Warn("reaction_remove_failed", "error", err)
		}
		if err := api.AddReaction(ctx, in.ChannelID, in.MessageTS, emoji); err != nil {
			logger.Warn("reaction_add_failed", "error", err)
		}
	}
	if reactionsEnabled {
		if err := api.AddReaction(ctx, in.ChannelID, in.MessageTS, processingEmoji); err != nil {
			logger.Warn("reaction_add_failed", "error", err)
		}
	}

	notify := func(ctx context.Context, text string) {
		if _, err := api.PostMessage(ctx, in.ChannelID, in.ThreadTS, text); err != nil {
			logger.Warn("thread_notice_failed", "error", err)
		}
	}

	// Attachments are best effort: a broken manifest or failed download
	// degrades to a text-only session.
	manifest, err := attachments.ParseManifest(in.FilesB64)
	if err != nil {
		logger.Error("file_manifest_invalid", "error", err)
	}
	candidates, truncated := attachments.FilterSupported(manifest)

	var downloads []attachments.Downloaded
	var scratchDir string
	if len(candidates) > 0 {
		dir, cleanup, err := attachments.SecureTempDir(logger)
		if err != nil {
			logger.Error("attachment_dir_failed", "error", err)
		} else {
			defer cleanup()
			scratchDir = dir
			if truncated > 0 {
				total := len(candidates) + truncated
				notify(ctx, fmt.Sprintf("Too many files attached (%d). Maximum is %d files per message. Processing first %d only.",
					total, attachments.MaxFileCount, attachments.MaxFileCount))
			}
			downloads = attachments.Fetch(ctx, api, notify, dir, candidates, logger)
		}
	}

	prompt := attachments.PromptPreamble(downloads, message)
	if strings.TrimSpace(prompt) == "" {
		// Bare mention with no message and no usable attachments.
		notify(ctx, "Hey! How can I help you? Just type your question or request after mentioning me.")
		setOutcomeReaction(successEmoji)
		logger.Info("empty_message_prompt", "channel", in.ChannelID, "session", sessionID)
		return nil
	}

	cfg := claudecli.Config{
		Binary:    in.ClaudeBinary,
		Prompt:    prompt,
		SessionID: sessionID,
	}
	if len(downloads) > 0 {
		cfg.AddDirs = []string{scratchDir}
	}

	start := time.Now()
	proc, firstLine, resumed, err := claudecli.StartWithSessionFallback(ctx, cfg, logger)
	if err != nil {
		notify(ctx, "Sorry, something went wrong processing your request.")
		setOutcomeReaction(errorEmoji)
		return fmt.Errorf("start claude: %w", err)
	}
	if resumed {
		logger.Info("session_resumed", "session", sessionID)
	}

	sink := &slackclient.ThreadSink{Client: api, Channel: in.ChannelID, ThreadTS: in.ThreadTS}
	agg := stream.NewAggregator(sink, stream.AggregatorConfig{
		MinChars:        viper.GetInt("stream.min_chars"),
		MinInterval:     viper.GetDuration("stream.update_interval"),
		MaxMessageLen:   api.MaxMessageLen(),
		TypingIndicator: viper.GetString("stream.typing_indicator"),
		UpdateTimeout:   viper.GetDuration("stream.update_timeout"),
		FinalTimeout:    viper.GetDuration("stream.final_timeout"),
	}, logger)
	reporter := stream.NewReporter(agg, notify, viper.GetStringSlice("stream.command_denylist"), logger)
	diags := stream.NewDiagnosticLog(5)

	var result *stream.ResultEvent
	dispatch := func(line string) {
		for _, ev := range stream.ParseLine(line) {
			switch ev := ev.(type) {
			case stream.TextDelta:
				agg.Append(ctx, ev.Chunk)
			case stream.ToolInvocation:
				reporter.Observe(ctx, ev)
			case stream.ResultEvent:
				r := ev
				result = &r
			case stream.Unparsable:
				diags.Add(ev.Raw)
			}
		}
	}

	if firstLine != "" {
		dispatch(firstLine)
	}
	for {
		line, ok := proc.ReadLine()
		if !ok {
			break
		}
		dispatch(line)
	}
	exitCode := proc.Wait()

	stats := stream.Stats{Duration: time.Since(start)}
	var resultText string
	if result != nil {
		resultText = result.Text
		if result.DurationMS > 0 {
			stats.Duration = time.Duration(result.DurationMS) * time.Millisecond
		}
		stats.CostUSD = result.CostUSD
		stats.Usage = result.Usage
	}

	stream.NewFinalizer(agg, logger).Run(ctx)

	if summary := stream.Summary(reporter.Counters()); summary != "" {
		notify(ctx, summary)
	}
	if line := stream.StatsLine(stats); line != "" {
		notify(ctx, line)
	}
	logger.Info("session_completed",
		"channel", in.ChannelID,
		"session", sessionID,
		"exit_code", exitCode,
		"duration", stats.Duration,
		"cost_usd", stats.CostUSD,
		"streamed_chars", agg.Len(),
		"continuations", agg.Continuations(),
	)

	outcome := stream.ClassifyOutcome(agg.Len(), resultText, exitCode, diags)
	switch outcome.Kind {
	case stream.OutcomeError:
		notify(ctx, outcome.ErrorText)
		logger.Error("session_failed", "session", sessionID, "exit_code", exitCode)
		setOutcomeReaction(errorEmoji)
	case stream.OutcomeSuccess:
		if agg.Len() == 0 && resultText != "" {
			// Nothing streamed live; deliver the result record's text.
			notify(ctx, resultText)
		}
		setOutcomeReaction(successEmoji)
	default:
		setOutcomeReaction(successEmoji)
	}
	return nil
}
