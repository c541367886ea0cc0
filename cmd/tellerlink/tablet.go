package main

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roboricindustries/tellerlink/pkg/schemas/common"
	teller "github.com/roboricindustries/tellerlink/pkg/schemas/teller/v1"
	"github.com/roboricindustries/tellerlink/pkg/session"
	"github.com/roboricindustries/tellerlink/pkg/state"
)

func newTabletCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tablet",
		Short: "Run the customer-facing tablet session client",
		RunE:  runTablet,
	}
}

func runTablet(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	st := buildStore(cfg, "tablet")
	registry := session.NewRegistry(st, logger)

	sid, err := registry.Resolve(ctx, cfg.SessionID)
	if err != nil {
		return err
	}
	if sid == "" {
		return errors.New("no session id: pass --session or pair via employee login")
	}

	ch := buildChannel(cfg, logger, "tablet")
	machine := state.NewMachine(state.Options{
		Publisher: ch,
		Topic:     session.Topic(sid),
		Cache:     st,
		Logger:    logger,
		OnSuppressed: func(t teller.MessageType, reason string) {
			logger.Info("update ignored",
				slog.String("type", string(t)), slog.String("reason", reason))
		},
	})
	machine.Restore(ctx)

	if err := ch.Subscribe(session.Topic(sid), machine.Apply); err != nil {
		return err
	}
	if err := ch.Connect(ctx); err != nil {
		return err
	}
	ch.SetHeartbeatKey(session.Topic(sid))

	data, _ := json.Marshal(teller.TabletConnectedV1{SessionID: sid})
	_ = ch.Publish(ctx, session.ControlKey, common.Envelope{
		Meta: common.Meta{Type: string(teller.TypeTabletConnected), Producer: "tablet"},
		Data: data,
	})
	announceJoin(ctx, ch, sid, "tablet")

	logger.Info("tablet client running", slog.String("session_id", sid))
	waitForSignal()
	return ch.Close()
}
