package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validSession(userID int64, until time.Time) *UserSession {
	return &UserSession{
		UserID:       userID,
		ChatID:       userID,
		Credentials:  &Credentials{APIKey: "key", APISecret: "secret"},
		Subscription: &Subscription{Started: until.Add(-24 * time.Hour), ValidUntil: until},
	}
}

func TestCanListen(t *testing.T) {
	t.Parallel()

	now := time.Now()
	disabled := false
	enabled := true

	tests := []struct {
		name string
		sess func() *UserSession
		kind Kind
		want bool
	}{
		{
			name: "valid session",
			sess: func() *UserSession { return validSession(1, now.Add(time.Hour)) },
			kind: KindSpot,
			want: true,
		},
		{
			name: "no credentials",
			sess: func() *UserSession {
				s := validSession(1, now.Add(time.Hour))
				s.Credentials = nil
				return s
			},
			kind: KindSpot,
			want: false,
		},
		{
			name: "empty api key",
			sess: func() *UserSession {
				s := validSession(1, now.Add(time.Hour))
				s.Credentials.APIKey = ""
				return s
			},
			kind: KindSpot,
			want: false,
		},
		{
			name: "expired subscription",
			sess: func() *UserSession { return validSession(1, now.Add(-time.Hour)) },
			kind: KindSpot,
			want: false,
		},
		{
			name: "no subscription",
			sess: func() *UserSession {
				s := validSession(1, now.Add(time.Hour))
				s.Subscription = nil
				return s
			},
			kind: KindSpot,
			want: false,
		},
		{
			name: "kind explicitly disabled",
			sess: func() *UserSession {
				s := validSession(1, now.Add(time.Hour))
				s.Options.Futures.Enabled = &disabled
				return s
			},
			kind: KindFutures,
			want: false,
		},
		{
			name: "other kind disabled does not affect this one",
			sess: func() *UserSession {
				s := validSession(1, now.Add(time.Hour))
				s.Options.Futures.Enabled = &disabled
				return s
			},
			kind: KindSpot,
			want: true,
		},
		{
			name: "kind explicitly enabled",
			sess: func() *UserSession {
				s := validSession(1, now.Add(time.Hour))
				s.Options.Spot.Enabled = &enabled
				return s
			},
			kind: KindSpot,
			want: true,
		},
		{
			name: "unset option defaults to enabled",
			sess: func() *UserSession { return validSession(1, now.Add(time.Hour)) },
			kind: KindFutures,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.sess().CanListen(tt.kind, now))
		})
	}
}

func TestOrderStatusHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusFilled.IsFill())
	assert.True(t, StatusPartiallyFilled.IsFill())
	assert.False(t, StatusNew.IsFill())

	assert.True(t, StatusCanceled.Terminal())
	assert.True(t, StatusExpired.Terminal())
	assert.False(t, StatusRejected.Terminal())

	assert.True(t, StatusNew.Known())
	assert.False(t, OrderStatus("NEW_INSURANCE").Known())
	assert.False(t, OrderStatus("").Known())
}

func TestCommandValid(t *testing.T) {
	t.Parallel()

	assert.True(t, Command{Type: CommandStart, UserID: 1}.Valid())
	assert.True(t, Command{Type: CommandStop, UserID: 42}.Valid())
	assert.True(t, Command{Type: CommandRestart, UserID: 7}.Valid())

	assert.False(t, Command{Type: CommandStart, UserID: 0}.Valid())
	assert.False(t, Command{Type: CommandStart, UserID: -5}.Valid())
	assert.False(t, Command{Type: "PAUSE", UserID: 1}.Valid())
	assert.False(t, Command{UserID: 1}.Valid())
}
