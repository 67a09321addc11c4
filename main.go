package main

import (
	"encoding/json"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/customeros/mailbridge/config"
	"github.com/customeros/mailbridge/contracts/bridge"
	"github.com/customeros/mailbridge/internal/database"
	"github.com/customeros/mailbridge/internal/keyring"
	"github.com/customeros/mailbridge/internal/mailauth"
	"github.com/customeros/mailbridge/internal/repository"
	"github.com/customeros/mailbridge/server"
)

func main() {
	app := &cli.App{
		Name:  "mailbridge",
		Usage: "authorize ledger accounts with DKIM-signed email",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Run database migrations",
				Action: migrate,
			},
			{
				Name:   "server",
				Usage:  "Start the application server",
				Action: serve,
			},
			{
				Name:      "verify",
				Usage:     "Check an .eml file against the key-ring without submitting it",
				ArgsUsage: "<file.eml>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "keyring",
						Usage: "key-ring file, overrides KEYRING_PATH",
					},
				},
				Action: verify,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func databaseConfig(cfg *config.Config) *database.DatabaseConfig {
	return &database.DatabaseConfig{
		DBName:          cfg.DatabaseConfig.DBName,
		Host:            cfg.DatabaseConfig.Host,
		Port:            cfg.DatabaseConfig.Port,
		User:            cfg.DatabaseConfig.User,
		Password:        cfg.DatabaseConfig.Password,
		MaxConn:         cfg.DatabaseConfig.MaxConn,
		MaxIdleConn:     cfg.DatabaseConfig.MaxIdleConn,
		ConnMaxLifetime: cfg.DatabaseConfig.ConnMaxLifetime,
		LogLevel:        cfg.DatabaseConfig.LogLevel,
		SSLMode:         cfg.DatabaseConfig.SSLMode,
	}
}

func migrate(c *cli.Context) error {
	cfg, err := config.InitConfig()
	if err != nil {
		return errors.Wrap(err, "config initialization failed")
	}

	dbConfig := databaseConfig(cfg)
	db, err := database.InitMailbridgeDatabase(dbConfig)
	if err != nil {
		return errors.Wrap(err, "database initialization failed")
	}

	if err := repository.MigrateDB(dbConfig, db); err != nil {
		return errors.Wrap(err, "database migration failed")
	}
	log.Println("Database migration completed successfully")
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := config.InitConfig()
	if err != nil {
		return errors.Wrap(err, "config initialization failed")
	}

	dbConfig := databaseConfig(cfg)
	db, err := database.InitMailbridgeDatabase(dbConfig)
	if err != nil {
		return errors.Wrap(err, "database initialization failed")
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Mailbridge starting up...")

	srv, err := server.NewServer(cfg, db)
	if err != nil {
		return errors.Wrap(err, "server setup failed")
	}
	if err := srv.Run(); err != nil {
		return errors.Wrap(err, "server startup failed")
	}

	log.Println("Shutdown complete")
	return nil
}

func verify(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: mailbridge verify <file.eml>", 2)
	}

	cfg, err := config.InitOfflineConfig()
	if err != nil {
		return err
	}
	if path := c.String("keyring"); path != "" {
		cfg.KeyringConfig.Path = path
	}

	ring, err := keyring.Load(cfg.KeyringConfig.Path)
	if err != nil {
		return errors.Wrap(err, "failed to load key-ring")
	}
	bridgeCfg, err := cfg.BridgeConfig.Contract()
	if err != nil {
		return err
	}
	bridgeAccount, err := cfg.BridgeConfig.Account()
	if err != nil {
		return errors.Wrap(err, "BRIDGE_ACCOUNT_ID")
	}

	raw, err := os.ReadFile(c.Args().First())
	if err != nil {
		return err
	}

	result := bridge.New(bridgeCfg, mailauth.NewAuthenticator(ring)).Verify(raw, bridgeAccount)

	encoder := json.NewEncoder(c.App.Writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return err
	}
	if !result.Valid {
		return cli.Exit("", 1)
	}
	return nil
}
