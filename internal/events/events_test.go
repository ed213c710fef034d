package events

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debemdeboas/redux-content/internal/model"
)

func TestMain(m *testing.M) {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.Disabled))
	os.Exit(m.Run())
}

func TestFanout(t *testing.T) {
	var got []string
	notify := Fanout(
		func(c model.PageChange) { got = append(got, "a:"+string(c.PageID)) },
		nil,
		func(c model.PageChange) { got = append(got, "b:"+string(c.PageID)) },
	)

	notify(model.PageChange{PageID: "home"})
	assert.Equal(t, []string{"a:home", "b:home"}, got)
}

func TestRedisBus(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newClient := func() *redis.Client {
		client, err := Dial(ctx, mr.Addr())
		require.NoError(t, err)
		t.Cleanup(func() { client.Close() })
		return client
	}

	publisher := NewRedisBus(newClient(), "pages")
	subscriber := NewRedisBus(newClient(), "pages")

	received := make(chan model.PageChange, 4)
	require.NoError(t, subscriber.Subscribe(ctx, func(c model.PageChange) { received <- c }))
	require.NoError(t, publisher.Subscribe(ctx, func(c model.PageChange) { received <- c }))

	publisher.Publish(model.PageChange{PageID: "home", Version: 2, Kind: model.ChangeDraftSaved, AuthorID: "admin"})

	select {
	case change := <-received:
		assert.Equal(t, model.PageID("home"), change.PageID)
		assert.Equal(t, 2, change.Version)
		assert.Equal(t, model.ChangeDraftSaved, change.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("page change not delivered")
	}

	// The publisher must not hear its own change.
	select {
	case change := <-received:
		t.Fatalf("unexpected echo %+v", change)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDialFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := Dial(ctx, addr)
	assert.Error(t, err)
}
