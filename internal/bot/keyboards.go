package bot

import (
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/vcfbot/core/telegram/keyboard"
	"github.com/m3rciful/vcfbot/internal/config"
)

// Callback uniques.
const (
	cbVerify    = "verify"
	cbAddKey    = "addkey"
	cbVCFCancel = "vcf_cancel"
)

func mainMenu() *tele.ReplyMarkup {
	return keyboard.Reply(
		[]string{labelCreateVCF, labelProfile},
		[]string{labelContact, labelPutKey},
	)
}

func adminMenu() *tele.ReplyMarkup {
	return keyboard.Reply(
		[]string{labelAddKey, labelManageKeys},
		[]string{labelStats, labelSearch},
		[]string{labelBan, labelBroadcast},
		[]string{labelToggle, labelMainMenu},
	)
}

func channelGate(channels []string) *tele.ReplyMarkup {
	btns := make([]keyboard.Button, 0, len(channels)+1)
	for _, ch := range channels {
		btns = append(btns, keyboard.Link(fmt.Sprintf(textJoinChannel, ch), config.ChannelURL(ch)))
	}
	btns = append(btns, keyboard.Action(textVerifyButton, cbVerify, ""))
	return keyboard.Column(btns...)
}

func durationMarkup(durations []int) *tele.ReplyMarkup {
	btns := make([]keyboard.Button, 0, len(durations))
	for _, d := range durations {
		label := fmt.Sprintf(textDays, d)
		if d == 1 {
			label = textDayOne
		}
		btns = append(btns, keyboard.Action(label, cbAddKey, strconv.Itoa(d)))
	}
	return keyboard.Grid(3, btns...)
}

func cancelMarkup() *tele.ReplyMarkup {
	return keyboard.Cancel(cbVCFCancel)
}
