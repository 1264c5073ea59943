package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitachat-poc-v1/server/internal/agent/chat"
	logx "github.com/vitachat-poc-v1/server/pkg/logger"
)

// demoScript is the new-user walk through: name, age, goal, agreement.
var demoScript = []string{
	"Привет!",
	"Меня зовут Иван",
	"25",
	"Постоянно устаю, хочу больше энергии",
	"Да, покажи",
	"Дорого",
}

func newDemoCmd() *cobra.Command {
	var (
		personaID string
		verbose   bool
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Replay a scripted conversation and print the replies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Quiet: !verbose})

			a, err := newApp(cmd.Context(), cfg,
				chat.WithSleep(func(context.Context, time.Duration) error { return nil }))
			if err != nil {
				return err
			}
			defer a.Close()

			return runDemo(cmd.Context(), cmd.OutOrStdout(), a.chat, personaID, demoScript)
		},
	}
	cmd.Flags().StringVar(&personaID, "persona", "0", "persona id to chat as")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show debug logs")
	return cmd
}

func runDemo(ctx context.Context, w io.Writer, svc *chat.Service, personaID string, script []string) error {
	v, err := svc.Start(ctx, personaID)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer func() { _ = svc.Delete(context.WithoutCancel(ctx), v.SessionID) }()

	fmt.Fprintf(w, "Session %s, client: %s\n", v.SessionID, v.Persona.Name)
	for _, m := range v.State.Messages {
		fmt.Fprintf(w, "Бот: %s\n", m.Text)
	}

	for _, text := range script {
		fmt.Fprintf(w, "Клиент: %s\n", text)
		res, err := svc.Send(ctx, v.SessionID, text)
		if err != nil {
			return fmt.Errorf("turn %q failed: %w", text, err)
		}
		fmt.Fprintf(w, "Бот: %s\n", res.Reply.Text)
		if res.Product != nil {
			fmt.Fprintf(w, "  [карточка] %s, %d₽\n", res.Product.Name, res.Product.Price)
		}
		if res.AddedToCart {
			t := res.View.Totals
			fmt.Fprintf(w, "  [корзина] %d шт., итого %d₽\n", t.Items, t.Total)
		}
	}
	return nil
}
