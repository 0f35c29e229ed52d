package main

import (
	"time"

	"github.com/paulocesarias/slack-bots/internal/stream"
	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Streaming cadence
	viper.SetDefault("stream.min_chars", 50)
	viper.SetDefault("stream.update_interval", 500*time.Millisecond)
	viper.SetDefault("stream.typing_indicator", "...")
	viper.SetDefault("stream.update_timeout", 10*time.Second)
	viper.SetDefault("stream.final_timeout", 30*time.Second)
	viper.SetDefault("stream.command_denylist", stream.DefaultCommandDenylist)

	// Slack
	viper.SetDefault("slack.api_base_url", "https://slack.com/api")
	viper.SetDefault("slack.http_timeout", 30*time.Second)
	viper.SetDefault("slack.reactions.enabled", true)

	// claude CLI
	viper.SetDefault("claude.bin", "claude")
}
