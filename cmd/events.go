/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/linkup-social/apiserver/config"
	"github.com/linkup-social/apiserver/internal/mq"
	"github.com/linkup-social/apiserver/internal/services"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Consume friendship events from the configured broker",
	Long: `Consume friendship events from the configured broker and log them.
Usage:

	apiserver events
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		broker, err := mq.NewFromConfig(cmd.Context(), cfg.MQ)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("no mq backend configured, set MQ_BACKEND")
		}
		defer func() {
			_ = broker.Close()
		}()

		log := slog.Default()
		return broker.Subscribe(cmd.Context(), services.FriendshipEventChannel, func(ctx context.Context, msg mq.Message) error {
			var event services.FriendshipEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				// Malformed payloads are dropped, not redelivered.
				log.Error("decode friendship event", "message_id", msg.ID, "error", err)
				return nil
			}
			log.Info("friend request created",
				"friendship_id", event.FriendshipID,
				"user1", event.User1,
				"user2", event.User2,
				"recipient", msg.Attributes["recipient"],
			)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
