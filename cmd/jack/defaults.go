package main

import "github.com/spf13/viper"

func initViperDefaults() {
	// Discord
	viper.SetDefault("discord.bot_token", "")
	viper.SetDefault("discord.guild_id", "")
	viper.SetDefault("discord.log_channel_id", "")

	// Answer table
	viper.SetDefault("puzzles.file", "")
	viper.SetDefault("puzzles.json", "")
	viper.SetDefault("keywords.json", "")
	viper.SetDefault("puzzles.select_command", "!enigme")
	viper.SetDefault("puzzles.special_id", "")

	// Liveness probe (the hosting platform supplies PORT)
	viper.SetDefault("health.listen", ":10000")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)
}
