package telegram

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"finbot/internal/transport"
	logx "finbot/pkg/logx"
)

const commandTimeout = 30 * time.Second

// Handle registers an owner-only operational command (e.g. "/status").
// Must be called before Start.
func (a *Adapter) Handle(command, description string, fn transport.CommandFunc) {
	a.bot.Handle(command, func(c tele.Context) error {
		m := c.Message()
		if m == nil || m.Sender == nil {
			return nil
		}
		if !a.isOwner(m.Sender.ID) {
			a.log.Warn("command from non-owner ignored",
				logx.String("command", command),
				logx.Int64("from", m.Sender.ID),
			)
			return c.Send("Not authorized.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		start := time.Now()
		reply, err := fn(ctx, transport.Message{
			ID:           m.ID,
			ChatID:       m.Chat.ID,
			FromID:       m.Sender.ID,
			FromUsername: m.Sender.Username,
			Text:         m.Text,
		})
		if err != nil {
			a.log.Warn("command failed",
				logx.String("command", command),
				logx.Duration("took", time.Since(start)),
				logx.Err(err),
			)
			return c.Send(fmt.Sprintf("%s failed: %v", command, err))
		}
		a.log.Debug("command handled",
			logx.String("command", command),
			logx.Duration("took", time.Since(start)),
		)
		if strings.TrimSpace(reply) == "" {
			return nil
		}
		return c.Send(reply, &tele.SendOptions{ParseMode: "HTML", DisableWebPagePreview: true})
	})
}

// UpdateMenu publishes the command list to the Telegram menu.
func (a *Adapter) UpdateMenu(commands map[string]string) error {
	cmds := make([]tele.Command, 0, len(commands))
	for name, desc := range commands {
		cmds = append(cmds, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: desc})
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Text < cmds[j].Text })
	return a.bot.SetCommands(cmds)
}
