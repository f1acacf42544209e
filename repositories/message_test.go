package repositories

import (
	"chat-hub/domain"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newMessage(room domain.RoomID, content string, at time.Time) domain.Message {
	return domain.Message{
		SenderID:       1,
		SenderUsername: "alice",
		RoomID:         room,
		Content:        content,
		Type:           domain.MessageTypeText,
		CreatedAt:      at,
		IsEncrypted:    true,
	}
}

func Test_Record_Multiple_Message(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), logs.GetLoggerFromLevel(slog.LevelDebug))

	for i := 0; i < 3; i++ {
		saved, err := repository.SaveMessage(newMessage(1, fmt.Sprintf("m%d", i), testNow.Add(time.Duration(i)*time.Minute)))
		req.NoError(err)
		req.EqualValues(i+1, saved.ID)
	}

	fetched, err := repository.RecentMessages(1, 100)
	req.NoError(err)
	req.Equal([]string{"m0", "m1", "m2"}, lo.Map(fetched, func(m domain.Message, _ int) string { return m.Content }))
	req.Equal("alice", fetched[0].SenderUsername)
	req.True(fetched[0].IsEncrypted)
	req.Equal(domain.MessageTypeText, fetched[0].Type)
}

func Test_Record_Multiple_Message_And_Limit(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), logs.GetLoggerFromLevel(slog.LevelDebug))

	// Given 5 messages
	for i := 0; i < 5; i++ {
		_, err := repository.SaveMessage(newMessage(1, fmt.Sprintf("m%d", i), testNow))
		req.NoError(err)
	}

	// When only 2 are requested
	fetched, err := repository.RecentMessages(1, 2)
	req.NoError(err)

	// Then the two most recent come back, oldest first
	req.Equal([]string{"m3", "m4"}, lo.Map(fetched, func(m domain.Message, _ int) string { return m.Content }))
}

func Test_Messages_Are_Isolated_Per_Room(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), logs.GetLoggerFromLevel(slog.LevelDebug))

	_, err := repository.SaveMessage(newMessage(1, "in general", testNow))
	req.NoError(err)
	_, err = repository.SaveMessage(newMessage(2, "elsewhere", testNow))
	req.NoError(err)
	_, err = repository.SaveMessage(newMessage(10, "room ten", testNow))
	req.NoError(err)

	fetched, err := repository.RecentMessages(1, 10)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("in general", fetched[0].Content)

	empty, err := repository.RecentMessages(3, 10)
	req.NoError(err)
	req.Empty(empty)
	req.NotNil(empty)
}
