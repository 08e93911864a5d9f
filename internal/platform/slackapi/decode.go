package slackapi

import (
	"github.com/slack-go/slack/slackevents"

	"github.com/relaydesk/ticket-relay/internal/platform"
)

// toMessageEvent maps a parsed Events API message into the platform type.
func toMessageEvent(msg *slackevents.MessageEvent) platform.MessageEvent {
	ev := platform.MessageEvent{
		ClientMsgID: msg.ClientMsgID,
		EventTS:     msg.EventTimeStamp,
		Channel:     msg.Channel,
		User:        msg.User,
		Text:        msg.Text,
		TS:          msg.TimeStamp,
		ThreadTS:    msg.ThreadTimeStamp,
		SubType:     msg.SubType,
		BotID:       msg.BotID,
		Files:       convertFiles(msg.Files),
	}
	if msg.Message != nil {
		ev.Edited = &platform.EditedMessage{
			TS:       msg.Message.TimeStamp,
			ThreadTS: msg.Message.ThreadTimeStamp,
			User:     msg.Message.User,
			Text:     msg.Message.Text,
			BotID:    msg.Message.BotID,
		}
	}
	return ev
}

func convertFiles(files []slackevents.File) []platform.FileRef {
	if len(files) == 0 {
		return nil
	}
	out := make([]platform.FileRef, 0, len(files))
	for _, f := range files {
		url := f.URLPrivateDownload
		if url == "" {
			url = f.URLPrivate
		}
		out = append(out, platform.FileRef{ID: f.ID, Name: f.Name, URL: url, MimeType: f.Mimetype, Size: int64(f.Size)})
	}
	return out
}
