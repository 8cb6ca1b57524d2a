package bot

import (
	"context"
	"fmt"
	"io"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/vcfbot/internal/broadcast"
)

func fetchFile(c tele.Context, f *tele.File) (io.ReadCloser, error) {
	return c.Bot().File(f)
}

type chatMemberAPI interface {
	ChatByUsername(name string) (*tele.Chat, error)
	ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error)
}

// teleMembership resolves channel membership through the Bot API.
type teleMembership struct {
	api chatMemberAPI
}

func (m teleMembership) IsMember(_ context.Context, channel string, userID int64) (bool, error) {
	chat, err := m.api.ChatByUsername(channel)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", channel, err)
	}
	member, err := m.api.ChatMemberOf(chat, &tele.User{ID: userID})
	if err != nil {
		return false, fmt.Errorf("member of %s: %w", channel, err)
	}
	switch member.Role {
	case tele.Member, tele.Administrator, tele.Creator:
		return true, nil
	case tele.Restricted:
		return member.Member, nil
	}
	return false, nil
}

type sendAPI interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// teleSender delivers broadcast messages by chat id.
type teleSender struct {
	api sendAPI
}

func (s teleSender) Send(_ context.Context, userID int64, text string) error {
	_, err := s.api.Send(tele.ChatID(userID), text)
	return err
}

func (b *Bot) membersFor(c tele.Context) MembershipChecker {
	if b.members != nil {
		return b.members
	}
	return teleMembership{api: c.Bot()}
}

func (b *Bot) broadcaster(c tele.Context) *broadcast.Broadcaster {
	s := b.sender
	if s == nil {
		s = teleSender{api: c.Bot()}
	}
	return broadcast.New(b.store, s, broadcast.Options{
		RatePerSecond: b.cfg.Broadcast.RatePerSecond,
		Burst:         b.cfg.Broadcast.Burst,
		Metrics:       b.metrics,
	})
}
