package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/question-bank/internal/auth"
	"github.com/gokatarajesh/question-bank/internal/config"
	"github.com/gokatarajesh/question-bank/internal/db/migrations"
)

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
}

func newRootCmd() *cobra.Command {
	var (
		dir     string
		dsn     string
		envFile string
	)

	root := &cobra.Command{
		Use:           "migrator",
		Short:         "Question bank schema migrations and operator tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dir, "dir", "", "directory containing migration files (defaults to the embedded set)")
	root.PersistentFlags().StringVar(&dsn, "dsn", "", "postgres connection string (defaults to PG_* environment)")
	root.PersistentFlags().StringVar(&envFile, "env-file", "configs/.env", "optional dotenv file loaded before reading PG_*")

	run := func(command string) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return migrate(cmd.Context(), command, dir, dsn, envFile)
		}
	}

	root.AddCommand(
		&cobra.Command{Use: migrations.CommandUp, Short: "Apply all pending migrations", Args: cobra.NoArgs, RunE: run(migrations.CommandUp)},
		&cobra.Command{Use: migrations.CommandDown, Short: "Roll back the latest migration", Args: cobra.NoArgs, RunE: run(migrations.CommandDown)},
		&cobra.Command{Use: migrations.CommandStatus, Short: "Print applied and pending migrations", Args: cobra.NoArgs, RunE: run(migrations.CommandStatus)},
		newHashAdminTokenCmd(),
	)
	return root
}

func newHashAdminTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-admin-token",
		Short: "Read an admin token from stdin and print its ADMIN_TOKEN_HASH value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := hashAdminToken(cmd.InOrStdin())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}

func hashAdminToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", errors.New("no token on stdin")
	}
	return auth.HashAdminToken(token)
}

func migrate(ctx context.Context, command, dir, dsn, envFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Debug().Err(err).Str("file", envFile).Msg("env file not loaded")
		}
	}

	if dsn == "" {
		pg, err := config.LoadPostgres()
		if err != nil {
			return err
		}
		dsn = pg.DSN()
		log.Info().Str("host", pg.Host).Int("port", pg.Port).Str("database", pg.Database).Msg("using PG_* environment")
	}

	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		if _, err := os.Stat(abs); err != nil {
			return err
		}
		dir = abs
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return err
	}

	source := dir
	if source == "" {
		source = "embedded"
	}
	log.Info().Str("command", command).Str("migration_dir", source).Msg("connected to database")

	if err := migrations.Run(ctx, db, command, dir); err != nil {
		return err
	}
	if command != migrations.CommandStatus {
		log.Info().Str("command", command).Msg("migrations finished")
	}
	return nil
}
