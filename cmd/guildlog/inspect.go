package main

import (
	"context"
	"fmt"

	"github.com/intrntsrfr/guildlog/config"
	"github.com/intrntsrfr/guildlog/database"
	"github.com/intrntsrfr/guildlog/eventlog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [guild-id]",
		Short: "Print a stored guild config, or list the guilds that have one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.Load(configFile)
			if err != nil {
				return err
			}
			db, err := database.Open(&database.Config{
				Log:    zap.NewNop(),
				Driver: conf.Storage.Driver,
				Path:   conf.Storage.Path,
			})
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if len(args) == 0 {
				return listGuilds(cmd, db)
			}
			return printConfig(cmd, db, args[0])
		},
	}
}

func listGuilds(cmd *cobra.Command, db database.DB) error {
	ids, err := db.GuildIDs(cmd.Context())
	if err != nil {
		return err
	}
	for _, id := range ids {
		cmd.Println(id)
	}
	return nil
}

// printConfig prints the config of gid the way it would be stored after the next write.
func printConfig(cmd *cobra.Command, db database.DB, gid string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	blob, err := db.GetGuildConfig(ctx, gid)
	if err != nil {
		return fmt.Errorf("guild %s: %w", gid, err)
	}
	c, err := eventlog.DecodeConfig(blob)
	if err != nil {
		return err
	}
	out, err := eventlog.EncodeConfig(c)
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}
