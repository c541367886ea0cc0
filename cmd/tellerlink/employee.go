package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/roboricindustries/tellerlink/pkg/config"
	"github.com/roboricindustries/tellerlink/pkg/dispatch"
	"github.com/roboricindustries/tellerlink/pkg/pubsub"
	"github.com/roboricindustries/tellerlink/pkg/schemas/common"
	teller "github.com/roboricindustries/tellerlink/pkg/schemas/teller/v1"
	"github.com/roboricindustries/tellerlink/pkg/session"
	"github.com/roboricindustries/tellerlink/pkg/store"
)

func newEmployeeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "employee",
		Short: "Run the employee-side session client",
		RunE:  runEmployee,
	}
	cmd.Flags().String("employee-id", "", "employee id used to derive the session when none is stored")
	return cmd
}

func runEmployee(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	st := buildStore(cfg, "employee")
	registry := session.NewRegistry(st, logger)

	sid, err := registry.Resolve(ctx, cfg.SessionID)
	if err != nil {
		return err
	}
	if sid == "" {
		employeeID, _ := cmd.Flags().GetString("employee-id")
		if employeeID == "" {
			return errors.New("no session id: pass --session or --employee-id")
		}
		if sid, err = registry.BindToEmployee(ctx, employeeID); err != nil {
			return err
		}
	}

	ch := buildChannel(cfg, logger, "employee")
	disp := dispatch.New(dispatch.Options{
		Publisher:     ch,
		Connected:     ch.Connected,
		Topic:         session.Topic(sid),
		Logger:        logger,
		DebounceDelay: cfg.DebounceDelay,
	})

	if err := ch.Subscribe(session.Topic(sid), disp.HandleReply); err != nil {
		return err
	}
	if err := ch.Subscribe(session.ControlKey, logControl(logger)); err != nil {
		return err
	}
	if err := ch.Connect(ctx); err != nil {
		return err
	}
	ch.SetHeartbeatKey(session.Topic(sid))
	announceJoin(ctx, ch, sid, "employee")

	// Employee login/logout replaces the session. The old topic subscription
	// is fully dropped before the new one exists; never both at once.
	registry.OnSwitch = func(oldID, newID string) {
		if oldID != "" {
			ch.Unsubscribe(session.Topic(oldID))
		}
		if err := ch.Subscribe(session.Topic(newID), disp.HandleReply); err != nil {
			logger.Error("resubscribe failed", slog.String("session_id", newID), slog.Any("error", err))
		}
		ch.SetHeartbeatKey(session.Topic(newID))
	}

	logger.Info("employee client running", slog.String("session_id", sid))
	waitForSignal()

	disp.Close()
	return ch.Close()
}

func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg := config.Load()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, nil, err
		}
	}
	if sid, _ := cmd.Flags().GetString("session"); sid != "" {
		cfg.SessionID = sid
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return cfg, logger, nil
}

func buildStore(cfg *config.Config, role string) store.Store {
	if cfg.RedisAddr == "" {
		return store.NewMemory()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return store.NewRedis(client, "tellerlink:"+role)
}

func buildChannel(cfg *config.Config, logger *slog.Logger, role string) *pubsub.Channel {
	return pubsub.NewChannel(pubsub.Options{
		URL:                  cfg.BrokerURL,
		Exchange:             cfg.Exchange,
		Role:                 role,
		ReconnectBase:        cfg.ReconnectBase,
		ReconnectCap:         cfg.ReconnectCap,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		HeartbeatInterval:    cfg.HeartbeatInterval,
		Logger:               logger,
	})
}

func announceJoin(ctx context.Context, ch *pubsub.Channel, sid, role string) {
	data, _ := json.Marshal(teller.ParticipantJoinedV1{SessionID: sid, Role: role})
	_ = ch.Publish(ctx, session.ControlKey, common.Envelope{
		Meta: common.Meta{Type: string(teller.TypeParticipantJoined), Producer: role},
		Data: data,
	})
}

func logControl(logger *slog.Logger) pubsub.Handler {
	return func(_ context.Context, env common.Envelope) error {
		logger.Info("control message",
			slog.String("type", env.Meta.Type), slog.String("producer", env.Meta.Producer))
		return nil
	}
}

func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	fmt.Fprintf(os.Stderr, "shutting down: %s\n", s)
}
