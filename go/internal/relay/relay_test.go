package relay

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/milena-rosa/pictionary/go/internal/protocol"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishMsg(msg *nats.Msg) error {
	args := m.Called(msg)
	return args.Error(0)
}

func TestRelay_Subject(t *testing.T) {
	r := New(&MockPublisher{}, "")

	testCases := []struct {
		desc string
		room string
		typ  protocol.MessageType
		want string
	}{
		{desc: "plain", room: "AB12CD", typ: protocol.TypeDrawingUpdate, want: "pictionary.rooms.AB12CD.DRAWING_UPDATE"},
		{desc: "wildcards escaped", room: "a.b*c>", typ: protocol.TypeChatMessage, want: "pictionary.rooms.a_b_c_.CHAT_MESSAGE"},
		{desc: "empty room", room: "", typ: protocol.TypeError, want: "pictionary.rooms._.ERROR"},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, r.Subject(tc.room, tc.typ))
		})
	}
}

func TestRelay_MirrorPublishesFrame(t *testing.T) {
	pub := &MockPublisher{}
	r := New(pub, "games")
	r.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	var published *nats.Msg
	pub.On("PublishMsg", mock.Anything).Run(func(args mock.Arguments) {
		published = args.Get(0).(*nats.Msg)
	}).Return(nil).Once()

	r.Mirror("AB12CD", protocol.Envelope{
		Type:    protocol.TypeChatMessage,
		Payload: json.RawMessage(`{"sender":"Bea","message":"hi"}`),
	})

	pub.AssertExpectations(t)
	require.NotNil(t, published)
	assert.Equal(t, "games.rooms.AB12CD.CHAT_MESSAGE", published.Subject)
	assert.Equal(t, r.SessionID(), published.Header.Get(HeaderSession))
	assert.Equal(t, "CHAT_MESSAGE", published.Header.Get(HeaderType))

	var frame Frame
	require.NoError(t, json.Unmarshal(published.Data, &frame))
	assert.Equal(t, "AB12CD", frame.RoomID)
	assert.Equal(t, protocol.TypeChatMessage, frame.Type)
	assert.True(t, frame.ReceivedAt.Equal(time.Unix(1_700_000_000, 0)))
	assert.JSONEq(t, `{"sender":"Bea","message":"hi"}`, string(frame.Payload))
}

func TestRelay_MirrorSwallowsPublishErrors(t *testing.T) {
	pub := &MockPublisher{}
	pub.On("PublishMsg", mock.Anything).Return(nats.ErrConnectionClosed)
	r := New(pub, "")

	assert.NotPanics(t, func() {
		r.Mirror("AB12CD", protocol.Envelope{Type: protocol.TypeError, Payload: json.RawMessage(`{"message":"x"}`)})
	})
	pub.AssertNumberOfCalls(t, "PublishMsg", 1)
}

func TestRelay_CloseWithoutConnection(t *testing.T) {
	assert.NoError(t, New(&MockPublisher{}, "").Close())
}
