package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Sandbox block production, every second
	CronScheduleBlockProduction string `env:"CRON_SCHEDULE_BLOCK_PRODUCTION" envDefault:"* * * * * *"`
	// Relay mailbox polling, every 15 seconds
	CronScheduleImapPoll string `env:"CRON_SCHEDULE_IMAP_POLL" envDefault:"*/15 * * * * *"`
}
