package slackapi

import (
	"testing"

	"github.com/slack-go/slack/slackevents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMessageEvent(t *testing.T) {
	ev := toMessageEvent(&slackevents.MessageEvent{
		Type:            "message",
		SubType:         "file_share",
		ClientMsgID:     "c-1",
		Channel:         "CUSER",
		User:            "U1",
		Text:            "see attached",
		TimeStamp:       "1700000000.000100",
		ThreadTimeStamp: "1700000000.000001",
		EventTimeStamp:  "1700000000.000100",
		Files: []slackevents.File{
			{ID: "F1", Name: "log.txt", Mimetype: "text/plain", Size: 12, URLPrivate: "https://files/1", URLPrivateDownload: "https://files/1/download"},
			{ID: "F2", Name: "shot.png", Mimetype: "image/png", Size: 99, URLPrivate: "https://files/2"},
		},
	})

	assert.Equal(t, "c-1", ev.DedupKey())
	assert.Equal(t, "file_share", ev.SubType)
	assert.True(t, ev.IsThreadReply())
	require.Len(t, ev.Files, 2)
	assert.Equal(t, "https://files/1/download", ev.Files[0].URL)
	assert.Equal(t, "https://files/2", ev.Files[1].URL)
	assert.Equal(t, int64(99), ev.Files[1].Size)
	assert.Nil(t, ev.Edited)
}

func TestToMessageEventChanged(t *testing.T) {
	ev := toMessageEvent(&slackevents.MessageEvent{
		Type:           "message",
		SubType:        "message_changed",
		Channel:        "CUSER",
		TimeStamp:      "1700000001.000000",
		EventTimeStamp: "1700000001.000000",
		Message: &slackevents.MessageEvent{
			Type:            "message",
			User:            "U1",
			Text:            "fixed typo",
			TimeStamp:       "1700000000.000100",
			ThreadTimeStamp: "1700000000.000001",
		},
	})

	require.NotNil(t, ev.Edited)
	assert.Equal(t, "fixed typo", ev.Edited.Text)
	assert.Equal(t, "1700000000.000100", ev.Edited.TS)
	assert.False(t, ev.FromBot())
}
